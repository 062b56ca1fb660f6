package api

import _ "embed"

// dashboardPage is the single-page classification form served at /dashboard.
//
//go:embed static/dashboard.html
var dashboardPage []byte
