package passkit

import (
	"encoding/base64"
	"os"
	"path/filepath"
)

// placeholderPNG is a 1x1 image used for any artwork missing on disk.
var placeholderPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR4nGNgYAAAAAMAASsJTYQAAAAASUVORK5CYII=",
)

type assetSpec struct {
	name       string
	candidates []string
}

// Each bundled image falls back to its other resolution before the placeholder.
var assetSpecs = []assetSpec{
	{"icon.png", []string{"icon.png", "icon@2x.png"}},
	{"icon@2x.png", []string{"icon@2x.png", "icon.png"}},
	{"logo.png", []string{"logo.png", "logo@2x.png"}},
	{"logo@2x.png", []string{"logo@2x.png", "logo.png"}},
	{"strip.png", []string{"strip.png", "strip@2x.png"}},
	{"strip@2x.png", []string{"strip@2x.png", "strip.png"}},
}

type file struct {
	name string
	data []byte
}

func loadAssets(dir string) []file {
	out := make([]file, 0, len(assetSpecs))
	for _, spec := range assetSpecs {
		out = append(out, file{name: spec.name, data: readFirst(dir, spec.candidates)})
	}
	return out
}

func readFirst(dir string, candidates []string) []byte {
	if dir != "" {
		for _, c := range candidates {
			data, err := os.ReadFile(filepath.Join(dir, c))
			if err == nil && len(data) > 0 {
				return data
			}
		}
	}
	return placeholderPNG
}
