package site

import _ "embed"

// indexPage links the operator-facing endpoints.
//
//go:embed static/index.html
var indexPage []byte
