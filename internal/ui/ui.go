// Package ui embeds the page templates rendered by the viewer.
package ui

import "embed"

//go:embed templates/*.html
var TemplatesFS embed.FS
