// Package swagger serves the embedded OpenAPI contract and a Swagger UI page
// that renders it.
package swagger

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	apicontract "github.com/tuanvumaihuynh/stockroom/api-contract"
)

const (
	DocsPath = "/docs"
	SpecPath = "/docs/openapi.yml"

	swaggerUIVersion = "5.29.3"
)

func Register(r chi.Router) {
	page := []byte(uiPage(SpecPath))
	spec := apicontract.GetSpecBytes()

	r.Get(DocsPath, serve("text/html; charset=utf-8", page))
	r.Get(DocsPath+"/", http.RedirectHandler(DocsPath, http.StatusMovedPermanently).ServeHTTP)
	r.Get(SpecPath, serve("application/yaml", spec))
}

func serve(contentType string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

func uiPage(specPath string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Stockroom API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@%[1]s/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@%[1]s/swagger-ui-bundle.js" crossorigin></script>
<script>
  window.onload = () => {
    window.ui = SwaggerUIBundle({
      url: '%[2]s',
      dom_id: '#swagger-ui',
      deepLinking: true,
      persistAuthorization: true,
    });
  };
</script>
</body>
</html>
`, swaggerUIVersion, specPath)
}
