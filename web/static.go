// Package web contains the embedded demo frontend.
package web

import "embed"

var (
	//go:embed all:static
	Static embed.FS
)
