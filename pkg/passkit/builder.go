// Package passkit assembles Apple Wallet .pkpass bundles.
package passkit

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	PassTypeIdentifier string
	TeamIdentifier     string
	WebServiceURL      string
	AssetDir           string
}

// Package is a finished bundle plus the pieces tests and callers inspect.
type Package struct {
	Data     []byte
	Manifest []byte
	Signed   bool
}

type Builder struct {
	cfg    Config
	signer Signer
	log    *zap.Logger
}

func NewBuilder(cfg Config, signer Signer, log *zap.Logger) *Builder {
	if signer == nil {
		signer = PlaceholderSigner{}
	}
	return &Builder{cfg: cfg, signer: signer, log: log}
}

func (b *Builder) PassTypeIdentifier() string {
	return b.cfg.PassTypeIdentifier
}

// zip entries carry a fixed timestamp so unchanged cards yield identical bytes.
var entryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Build renders card into a zipped bundle. A card without an authentication
// token is a caller bug; missing artwork or signing problems are not errors.
func (b *Builder) Build(ctx context.Context, card Card) (*Package, error) {
	if card.SerialNumber == "" || card.AuthenticationToken == "" {
		return nil, fmt.Errorf("passkit: card %q has no serial number or authentication token", card.SerialNumber)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	passJSON, err := json.Marshal(b.descriptor(card))
	if err != nil {
		return nil, fmt.Errorf("passkit: encode pass.json: %w", err)
	}

	files := append([]file{{name: "pass.json", data: passJSON}}, loadAssets(b.cfg.AssetDir)...)

	manifest, err := buildManifest(files)
	if err != nil {
		return nil, err
	}

	signed := b.signer.Signed()
	signature, err := b.signer.Sign(manifest)
	if err != nil {
		b.log.Warn("failed to sign pass manifest, using placeholder",
			zap.String("serial_number", card.SerialNumber), zap.Error(err))
		signature = PlaceholderSignature
		signed = false
	}

	files = append(files, file{name: "manifest.json", data: manifest}, file{name: "signature", data: signature})
	data, err := zipFiles(files)
	if err != nil {
		return nil, err
	}
	return &Package{Data: data, Manifest: manifest, Signed: signed}, nil
}

func buildManifest(files []file) ([]byte, error) {
	manifest := make(map[string]string, len(files))
	for _, f := range files {
		sum := sha1.Sum(f.data)
		manifest[f.name] = hex.EncodeToString(sum[:])
	}
	out, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("passkit: encode manifest: %w", err)
	}
	return out, nil
}

func zipFiles(files []file) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.name,
			Method:   zip.Deflate,
			Modified: entryTime,
		})
		if err != nil {
			return nil, fmt.Errorf("passkit: add %s: %w", f.name, err)
		}
		if _, err := w.Write(f.data); err != nil {
			return nil, fmt.Errorf("passkit: write %s: %w", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("passkit: close archive: %w", err)
	}
	return buf.Bytes(), nil
}
