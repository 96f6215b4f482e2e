// Package imaging normalises captured photos before they are stored.
//
// Every photo ends up as a JPEG no larger than MaxDimension on either side,
// whatever the phone sent. Format is decided by sniffing the bytes, never by
// the client's Content-Type.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png" // registers the PNG decoder
	"io"
	"net/http"

	"golang.org/x/image/draw"

	"github.com/sakif/trashwatch/internal/apperror"
)

// MaxDimension is the maximum width or height of a stored photo.
const MaxDimension = 1024

// JPEGQuality is the compression quality for stored photos.
const JPEGQuality = 85

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Process reads a photo, downscales it to fit MaxDimension and re-encodes it
// as JPEG.
//
// Input that is not a decodable JPEG or PNG yields apperror.ErrValidation.
func Process(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("imaging: reading photo: %w", err)
	}
	if len(data) == 0 {
		return nil, apperror.ValidationFailed("photo", "photo is empty")
	}

	detected := http.DetectContentType(data)
	if !allowedMIME[detected] {
		return nil, apperror.ValidationFailed("photo",
			fmt.Sprintf("unsupported photo format %s (only JPEG and PNG accepted)", detected))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperror.ValidationFailed("photo", "photo could not be decoded")
	}

	img = Downscale(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("imaging: encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// Downscale fits img inside maxDim×maxDim, keeping the aspect ratio, using
// Catmull-Rom interpolation. Images already within bounds are returned as is.
//
// The result is flattened onto white, so transparent PNG areas do not turn
// black once encoded as JPEG.
func Downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}
	newW, newH = max(newW, 1), max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
