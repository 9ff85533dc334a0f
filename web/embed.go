package web

import "embed"

// FS holds the browser view: a page that follows /ws and edits /api/routes.
//
//go:embed *.html *.css *.js
var FS embed.FS
