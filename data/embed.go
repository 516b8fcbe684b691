package data

import "embed"

var (
	//go:embed tuning.yaml
	Tuning embed.FS
)
