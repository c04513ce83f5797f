package utils

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

type ThumbnailOptions struct {
	Mode    string // "fit" or "square"
	Size    int    // bounding box in pixels
	Quality int
}

// Thumbnail decodes data, honours EXIF orientation, scales it down into the
// requested box and encodes the result as JPEG. Images already smaller than
// the box are not enlarged in "fit" mode.
func Thumbnail(data []byte, opts ThumbnailOptions) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	if opts.Size <= 0 {
		opts.Size = 256
	}
	if opts.Quality <= 0 {
		opts.Quality = 80
	}

	var out image.Image
	switch opts.Mode {
	case "square":
		out = imaging.Fill(img, opts.Size, opts.Size, imaging.Center, imaging.Lanczos)
	default:
		if img.Bounds().Dx() > opts.Size || img.Bounds().Dy() > opts.Size {
			out = imaging.Fit(img, opts.Size, opts.Size, imaging.Lanczos)
		} else {
			out = img
		}
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, out, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
