package utils

import (
	"bytes"
	"image"
	_ "image/gif"  // Support GIF
	_ "image/jpeg" // Support JPEG
	_ "image/png"  // Support PNG

	_ "golang.org/x/image/bmp"  // Support BMP
	_ "golang.org/x/image/tiff" // Support TIFF
	_ "golang.org/x/image/webp" // Support WEBP
)

// BinaryFormat is reported for payloads that do not decode as an image.
const BinaryFormat = "binary"

type ImageMeta struct {
	Width, Height int
	Format        string
	Size          int64
}

// ProbeImage reads only the image header. On failure it reports zero
// dimensions and BinaryFormat with ok=false.
func ProbeImage(data []byte) (meta ImageMeta, ok bool) {
	meta.Size = int64(len(data))

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		meta.Format = BinaryFormat
		return meta, false
	}

	meta.Width, meta.Height, meta.Format = cfg.Width, cfg.Height, format
	return meta, true
}
