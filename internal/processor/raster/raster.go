// Package raster executes image transforms in-process: crop, rotate,
// resize, recompress, format conversion, and text watermarking. It
// works entirely on in-memory buffers and never touches disk.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/kamarjahan/pdf-img-edit/internal/model"
)

// ErrProcessing marks a failure inside the raster engine, e.g. an
// unsupported source encoding or an invalid rotation angle.
var ErrProcessing = errors.New("local processing failed")

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// quality maps the user-facing compression tier to a JPEG encode
// quality. "low" compression intentionally means high quality: the
// field answers "how much should I compress", not "how good should the
// output look".
var quality = map[string]int{
	"extreme":     30,
	"recommended": 80,
	"low":         90,
}

// Processor runs local raster operations. The font path is used for
// watermark text when configured; otherwise a built-in bitmap face is
// used.
type Processor struct {
	fontPath string
}

// New creates a Processor. fontPath may be empty.
func New(fontPath string) *Processor {
	return &Processor{fontPath: fontPath}
}

// Result is the processed image plus its negotiated media type.
type Result struct {
	Data        []byte
	ContentType string
}

// Process applies the operation family op to a single payload.
func (p *Processor) Process(payload model.Payload, op string, params map[string]string) (Result, error) {
	img, err := imaging.Decode(bytes.NewReader(payload.Data))
	if err != nil {
		return Result{}, fmt.Errorf("%w: decode image: %v", ErrProcessing, err)
	}

	switch op {
	case "crop":
		img = crop(img, params)
	case "rotate":
		img, err = rotate(img, params)
		if err != nil {
			return Result{}, err
		}
	case "resize":
		img = resize(img, params)
	case "compress", "convert":
		// No geometry change; the work happens at encode time.
	case "watermark":
		img, err = p.watermark(img, params["watermark_text"])
		if err != nil {
			return Result{}, err
		}
	default:
		return Result{}, fmt.Errorf("%w: unknown raster operation %q", ErrProcessing, op)
	}

	q, ok := quality[params["compression_level"]]
	if !ok {
		q = quality["recommended"]
	}

	// PNG sources stay PNG unless the tool is an explicit conversion;
	// everything else encodes as JPEG at the computed quality.
	buf := new(bytes.Buffer)
	if bytes.HasPrefix(payload.Data, pngSignature) && op != "convert" {
		if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
			return Result{}, fmt.Errorf("%w: encode png: %v", ErrProcessing, err)
		}
		return Result{Data: buf.Bytes(), ContentType: "image/png"}, nil
	}

	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
		return Result{}, fmt.Errorf("%w: encode jpeg: %v", ErrProcessing, err)
	}
	return Result{Data: buf.Bytes(), ContentType: "image/jpeg"}, nil
}

// crop cuts the requested rectangle. x/y default to 0; width and height
// are clamped to at least one pixel so a zero or negative request never
// produces an empty image or an error.
func crop(img image.Image, params map[string]string) image.Image {
	x := atoi(params["x"])
	y := atoi(params["y"])
	w := atoi(params["w"])
	h := atoi(params["h"])

	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	return imaging.Crop(img, image.Rect(x, y, x+w, y+h))
}

// rotate turns the image clockwise by a multiple of 90 degrees. The
// angle is normalized modulo 360; anything that is not a right angle
// after normalization is rejected.
func rotate(img image.Image, params map[string]string) (image.Image, error) {
	angle := ((atoi(params["rotate_angle"]) % 360) + 360) % 360

	switch angle {
	case 0:
		return img, nil
	case 90:
		return imaging.Rotate270(img), nil
	case 180:
		return imaging.Rotate180(img), nil
	case 270:
		return imaging.Rotate90(img), nil
	default:
		return nil, fmt.Errorf("%w: rotation angle must be a multiple of 90, got %d", ErrProcessing, angle)
	}
}

// resize scales to the requested dimensions. If either dimension is
// missing or non-positive the resize is skipped and the original
// dimensions are kept.
func resize(img image.Image, params map[string]string) image.Image {
	w := atoi(params["resize_w"])
	h := atoi(params["resize_h"])

	if w <= 0 || h <= 0 {
		return img
	}

	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// watermark draws the text in the bottom-right corner. A configured
// TTF face is preferred; the built-in bitmap face is the fallback so
// watermarking works without bundled assets.
func (p *Processor) watermark(img image.Image, text string) (image.Image, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty watermark text", ErrProcessing)
	}

	dc := gg.NewContextForImage(img)
	dc.SetColor(color.White)

	fontSize := float64(dc.Width()) * 0.05 // 5% of the image width
	if p.fontPath == "" || dc.LoadFontFace(p.fontPath, fontSize) != nil {
		dc.SetFontFace(basicfont.Face7x13)
	}

	tw, th := dc.MeasureString(text)

	margin := 10.0
	x := float64(dc.Width()) - tw - margin
	y := float64(dc.Height()) - th - margin

	dc.DrawStringAnchored(text, x, y, 1, 1) // bottom-right corner

	return dc.Image(), nil
}

// atoi parses an optional numeric form field; absent or malformed
// values read as zero and are handled by the per-operation defaults.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
