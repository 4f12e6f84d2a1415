package apperr

import "github.com/tuanvumaihuynh/stockroom/pkg/zerror"

const (
	ValidationErrorCode = "VALIDATION_FAILED"
)

var (
	ValidationErr = zerror.NewValidationFailed(ValidationErrorCode, "validation error")

	StorageUnavailableErr = zerror.NewServiceUnavailable("STORAGE_UNAVAILABLE", "storage is unavailable")
)

// Catalog
var (
	ProductNotFoundErr     = zerror.NewNotFound("PRODUCT_NOT_FOUND", "product not found")
	DuplicateCodeErr       = zerror.NewConflict("PRODUCT_CODE_DUPLICATE", "product code already exists")
	UnknownProductFieldErr = zerror.NewBadRequest("PRODUCT_FIELD_UNKNOWN", "product field cannot be edited")
	NothingToRestoreErr    = zerror.NewConflict("NOTHING_TO_RESTORE", "nothing to restore")
	SupplierNotFoundErr    = zerror.NewNotFound("SUPPLIER_NOT_FOUND", "supplier not found")
	DuplicateSupplierErr   = zerror.NewConflict("SUPPLIER_NAME_DUPLICATE", "supplier already exists")
	UploadErr              = zerror.NewBadRequest("UPLOAD_INVALID", "missing or unreadable upload")
	ImportInProgressErr    = zerror.NewConflict("IMPORT_IN_PROGRESS", "an import is already running")
	ValueOutOfRangeErr     = zerror.NewValidationFailed("VALUE_OUT_OF_RANGE", "value does not fit its column")
)

// Identity
var (
	MissingTokenErr       = zerror.NewUnauthorized("MISSING_TOKEN", "authorization token is required")
	InvalidTokenErr       = zerror.NewUnauthorized("INVALID_TOKEN", "invalid or expired token")
	InvalidCredentialsErr = zerror.NewUnauthorized("INVALID_CREDENTIALS", "invalid username or password")
	PermissionDeniedErr   = zerror.NewForbidden("PERMISSION_DENIED", "permission denied")
	UsernameTakenErr      = zerror.NewConflict("USERNAME_TAKEN", "username already exists")
	UserNotFoundErr       = zerror.NewNotFound("USER_NOT_FOUND", "user not found")
)
