package catalog

import (
	"embed"
	"io/fs"
	"sync"
)

//go:embed default.yaml
var files embed.FS

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// FS exposes the bundled catalog files.
func FS() fs.FS {
	return files
}

// Default returns a copy of the bundled catalog.
func Default() *Catalog {
	defaultOnce.Do(func() {
		data, err := files.ReadFile("default.yaml")
		if err != nil {
			panic(err)
		}
		cat := &Catalog{}
		if err := cat.merge(data, "default.yaml"); err != nil {
			// The bundled file ships with the package; failing to parse it is a
			// build defect.
			panic(err)
		}
		defaultCatalog = cat
	})
	return defaultCatalog.clone()
}
