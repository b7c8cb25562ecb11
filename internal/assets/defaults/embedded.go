// Package defaultsassets provides the embedded default configuration.
//
// Defaults are embedded at compile time so the CLI behaves the same
// regardless of the working directory or installation location.
package defaultsassets

import _ "embed"

// DefaultsYAML is the built-in configuration layer.
//
//go:embed azst.yaml
var DefaultsYAML []byte
