// Package docs отдаёт OpenAPI-описание API и Swagger UI.
package docs

import (
	_ "embed"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.json
var openAPI []byte

// SpecHandler serves the raw OpenAPI document.
func SpecHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(openAPI)
	})
}

// UIHandler serves Swagger UI reading the document from specURL.
func UIHandler(specURL string) http.Handler {
	return httpSwagger.Handler(httpSwagger.URL(specURL))
}
