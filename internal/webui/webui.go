// Package webui carries the embedded single-page frontend. The page is
// plain HTML and vanilla JS so the binary stays self-contained; it talks
// to the JSON API under /api.
package webui

import _ "embed"

//go:embed index.html
var Index []byte
