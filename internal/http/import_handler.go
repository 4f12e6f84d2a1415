package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/internal/service"
)

const (
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	templateFilename = "modelo_produtos.xlsx"
)

type importHandler struct {
	importSvc      service.ImportService
	maxUploadBytes int64
}

func newImportHandler(importSvc service.ImportService, maxUploadBytes int64) *importHandler {
	return &importHandler{
		importSvc:      importSvc,
		maxUploadBytes: maxUploadBytes,
	}
}

// startImport accepts a multipart upload in the "file" part. The mode comes
// from the "mode" form value or query parameter.
func (h *importHandler) startImport(w http.ResponseWriter, r *http.Request, _ request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.UploadErr.WithMsg("upload exceeds " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes")
		}
		return apperr.UploadErr.WrapParent(err)
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	params := service.StartImportParams{Mode: model.ImportMode(r.FormValue("mode"))}

	// A missing file part still goes through the import so progress shows
	// the failure.
	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		params.File, params.Filename = file, header.Filename
	} else if !errors.Is(err, http.ErrMissingFile) {
		return apperr.UploadErr.WrapParent(err)
	}

	progress, err := h.importSvc.StartImport(r.Context(), params)
	if err != nil {
		return fmt.Errorf("import service start import: %w", err)
	}

	return writeJSON(w, http.StatusAccepted, progress)
}

func (h *importHandler) progress(w http.ResponseWriter, r *http.Request, _ request) error {
	return writeJSON(w, http.StatusOK, h.importSvc.ImportProgress(r.Context()))
}

func (h *importHandler) template(w http.ResponseWriter, _ *http.Request, _ request) error {
	var buf bytes.Buffer
	if err := h.importSvc.WriteTemplate(&buf); err != nil {
		return fmt.Errorf("import service write template: %w", err)
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+templateFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		return writtenError{err: fmt.Errorf("write template: %w", err)}
	}
	return nil
}
