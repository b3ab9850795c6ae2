// Package data holds the embedded model catalog (catalog.json plus one detail file per family under models/).
package data

import "embed"

// Catalog is the default catalog shipped with the binary.
//
//go:embed catalog.json models/*.json
var Catalog embed.FS
