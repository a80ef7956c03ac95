// Package qr renders WhatsApp pairing strings as scannable QR symbols.
package qr

import (
	"encoding/base64"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// pngSize is the edge length in pixels of the rasterized symbol.
const pngSize = 256

// Rendering holds the disposable renderings of a pairing string. The raw
// string stays authoritative; renderings are regenerated on every fetch
// because the underlying pairing string rotates.
type Rendering struct {
	ASCII        string
	ImageDataURI string
}

// Render encodes raw into a QR symbol and returns its ASCII and PNG
// renderings. The symbol version is chosen to fit the payload, so
// realistic pairing strings (~150 characters) encode without truncation.
// Render is a pure function: identical input yields identical output.
func Render(raw string) (*Rendering, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty pairing string")
	}

	code, err := qrcode.New(raw, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode pairing string: %w", err)
	}

	png, err := code.PNG(pngSize)
	if err != nil {
		return nil, fmt.Errorf("rasterize pairing string: %w", err)
	}

	return &Rendering{
		ASCII:        asciiRender(code.Bitmap()),
		ImageDataURI: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// asciiRender maps each module to a 2-character block so the symbol keeps
// a roughly square aspect ratio in monospace terminals.
func asciiRender(bitmap [][]bool) string {
	var b strings.Builder
	for _, row := range bitmap {
		for _, set := range row {
			if set {
				b.WriteString("██")
			} else {
				b.WriteString("  ")
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
