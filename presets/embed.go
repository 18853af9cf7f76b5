// Package presets 內建的範例題目設定。
package presets

import (
	"embed"
)

// FS provides embedded puzzle config YAMLs for external usage.
//
//go:embed *.yaml
var FS embed.FS
