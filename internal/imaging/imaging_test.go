package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/sakif/trashwatch/internal/apperror"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func createTestJPEG(w, h int) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, solid(w, h, color.RGBA{255, 0, 0, 255}), &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func createTestPNG(w, h int) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, solid(w, h, color.RGBA{0, 0, 255, 255}))
	return buf.Bytes()
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	return img
}

func TestProcess_Formats(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"jpeg", createTestJPEG(100, 80)},
		{"png", createTestPNG(100, 80)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Process(bytes.NewReader(tc.data))
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			img := decodeJPEG(t, out)
			if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 80 {
				t.Errorf("small photo resized to %dx%d", b.Dx(), b.Dy())
			}
		})
	}
}

func TestProcess_DownscalesKeepingAspect(t *testing.T) {
	out, err := Process(bytes.NewReader(createTestJPEG(2048, 1024)))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	b := decodeJPEG(t, out).Bounds()
	if b.Dx() != MaxDimension || b.Dy() != MaxDimension/2 {
		t.Errorf("got %dx%d, want %dx%d", b.Dx(), b.Dy(), MaxDimension, MaxDimension/2)
	}
}

func TestProcess_Portrait(t *testing.T) {
	out, err := Process(bytes.NewReader(createTestPNG(600, 1800)))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	b := decodeJPEG(t, out).Bounds()
	if b.Dy() != MaxDimension || b.Dx() != 341 {
		t.Errorf("got %dx%d, want 341x%d", b.Dx(), b.Dy(), MaxDimension)
	}
}

func TestProcess_Rejects(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"text", []byte("definitely not a photo")},
		{"gif", []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00")},
		{"truncated jpeg", createTestJPEG(50, 50)[:20]},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Process(bytes.NewReader(tc.data))
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Process() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestDownscale_FlattensTransparency(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2000, 2000))

	out := Downscale(img, 100)
	r, g, b, _ := out.At(50, 50).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Errorf("transparent area became (%d,%d,%d), want white", r>>8, g>>8, b>>8)
	}
}

func TestDownscale_WithinBoundsUnchanged(t *testing.T) {
	img := solid(10, 10, color.Black)
	if Downscale(img, 100) != image.Image(img) {
		t.Error("Downscale() should return the original image when already small")
	}
}
