package swagger

import "embed"

// docs holds the OpenAPI document and the ReDoc page that renders it.
//
//go:embed openapi.yaml redoc.html
var docs embed.FS

// Document returns the embedded OpenAPI YAML document.
func Document() []byte {
	b, err := docs.ReadFile("openapi.yaml")
	if err != nil {
		panic("swagger: openapi.yaml missing from build: " + err.Error())
	}
	return b
}
