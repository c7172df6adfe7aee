package imageproc

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"brandstudio/internal/domain"
	"brandstudio/pkg/metrics"
)

// Position is where the product sits on the background.
type Position string

const (
	PositionCenter       Position = "center"
	PositionRuleOfThirds Position = "rule-of-thirds"
)

// ParsePosition maps user input to a Position, defaulting to center.
func ParsePosition(s string) Position {
	if Position(strings.ToLower(strings.TrimSpace(s))) == PositionRuleOfThirds {
		return PositionRuleOfThirds
	}
	return PositionCenter
}

const (
	DefaultProductScale    = 0.6
	DefaultShadowIntensity = 0.3
)

// CompositionOptions controls product placement and shadow.
type CompositionOptions struct {
	ProductScale    float64
	Position        Position
	AddShadow       bool
	ShadowIntensity float64
	Transparent     bool
}

// DefaultCompositionOptions centres the product at 60% with a soft shadow.
func DefaultCompositionOptions() CompositionOptions {
	return CompositionOptions{
		ProductScale:    DefaultProductScale,
		Position:        PositionCenter,
		AddShadow:       true,
		ShadowIntensity: DefaultShadowIntensity,
	}
}

func (o CompositionOptions) normalized() CompositionOptions {
	if o.ProductScale <= 0 || o.ProductScale > 1 {
		o.ProductScale = DefaultProductScale
	}
	if o.Position != PositionRuleOfThirds {
		o.Position = PositionCenter
	}
	if o.ShadowIntensity <= 0 || o.ShadowIntensity > 1 {
		o.ShadowIntensity = DefaultShadowIntensity
	}
	return o
}

// Compositor places a cutout product onto a generated background.
type Compositor struct{}

func NewCompositor() *Compositor { return &Compositor{} }

// Composite returns the background with the product drawn on top as PNG.
func (c *Compositor) Composite(background, product []byte, opts CompositionOptions) ([]byte, error) {
	started := time.Now()
	defer metrics.ObserveStage("composition", started)

	opts = opts.normalized()
	bg, err := Decode(background)
	if err != nil {
		return nil, fmt.Errorf("%w: background: %v", domain.ErrCompositionFailed, err)
	}
	fg, err := Decode(product)
	if err != nil {
		return nil, fmt.Errorf("%w: product: %v", domain.ErrCompositionFailed, err)
	}

	bb, fb := bg.Bounds(), fg.Bounds()
	rect := Placement(bb.Dx(), bb.Dy(), fb.Dx(), fb.Dy(), opts.ProductScale, opts.Position)
	if rect.Empty() {
		return nil, fmt.Errorf("%w: empty placement", domain.ErrCompositionFailed)
	}

	var scaled *image.NRGBA
	if rect.Dx() == fb.Dx() && rect.Dy() == fb.Dy() {
		scaled = imaging.Clone(fg)
	} else {
		scaled = imaging.Resize(fg, rect.Dx(), rect.Dy(), imaging.Lanczos)
	}

	canvas := imaging.Clone(bg)
	if opts.AddShadow {
		drawShadow(canvas, scaled, rect, opts.ShadowIntensity)
	}
	draw.Draw(canvas, rect, scaled, image.Point{}, draw.Over)

	if !opts.Transparent {
		canvas = flatten(canvas)
	}
	out, err := EncodePNG(canvas)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCompositionFailed, err)
	}
	return out, nil
}

// Placement sizes the product to at most scale of the background on both
// axes, never upscaling past its native size, and positions it.
func Placement(bgW, bgH, fgW, fgH int, scale float64, pos Position) image.Rectangle {
	if bgW <= 0 || bgH <= 0 || fgW <= 0 || fgH <= 0 {
		return image.Rectangle{}
	}
	if scale <= 0 || scale > 1 {
		scale = DefaultProductScale
	}
	aspect := float64(fgH) / float64(fgW)

	w := floorPx(float64(bgW) * scale)
	h := floorPx(float64(w) * aspect)
	if maxH := floorPx(float64(bgH) * scale); h > maxH {
		h = maxH
		w = floorPx(float64(h) / aspect)
	}
	if w > fgW || h > fgH {
		w, h = fgW, fgH
	}
	w, h = max(1, min(w, bgW)), max(1, min(h, bgH))

	x := int(math.Round(float64(bgW-w) / 2))
	var y int
	if pos == PositionRuleOfThirds {
		y = int(math.Round(float64(bgH)*0.4 - float64(h)/2))
	} else {
		y = int(math.Round(float64(bgH-h) / 2))
	}
	x, y = max(0, x), max(0, y)
	return image.Rect(x, y, x+w, y+h)
}

// floorPx truncates to whole pixels, tolerating float error just below an integer.
func floorPx(v float64) int {
	return int(math.Floor(v + 1e-9))
}

// ShadowGeometry returns the blur radius and down-right offset for a product of w×h.
func ShadowGeometry(w, h int) (radius, offset int) {
	side := float64(max(w, h))
	radius = max(1, int(math.Round(side*0.04)))
	offset = max(1, int(math.Round(side*0.02)))
	return radius, offset
}

func drawShadow(canvas *image.NRGBA, fg *image.NRGBA, rect image.Rectangle, intensity float64) {
	w, h := fg.Bounds().Dx(), fg.Bounds().Dy()
	radius, offset := ShadowGeometry(w, h)

	mask := image.NewNRGBA(image.Rect(0, 0, w+2*radius, h+2*radius))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := fg.Pix[fg.PixOffset(x, y)+3]
			mask.Pix[mask.PixOffset(x+radius, y+radius)+3] = uint8(math.Round(float64(a) * intensity))
		}
	}
	blurred := imaging.Blur(mask, float64(radius)/2)

	target := image.Rect(
		rect.Min.X-radius+offset, rect.Min.Y-radius+offset,
		rect.Min.X-radius+offset+blurred.Bounds().Dx(), rect.Min.Y-radius+offset+blurred.Bounds().Dy(),
	)
	draw.Draw(canvas, target, blurred, image.Point{}, draw.Over)
}

func flatten(img *image.NRGBA) *image.NRGBA {
	out := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), color.White)
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Over)
	return out
}

// PasteCentered is the no-frills fallback when Composite fails: the product is
// shrunk to fit if needed and pasted in the middle without a shadow.
func PasteCentered(background, product []byte) ([]byte, error) {
	bg, err := Decode(background)
	if err != nil {
		return nil, fmt.Errorf("%w: background: %v", domain.ErrCompositionFailed, err)
	}
	fg, err := Decode(product)
	if err != nil {
		return nil, fmt.Errorf("%w: product: %v", domain.ErrCompositionFailed, err)
	}
	bb := bg.Bounds()
	if fg.Bounds().Dx() > bb.Dx() || fg.Bounds().Dy() > bb.Dy() {
		fg = imaging.Fit(fg, bb.Dx(), bb.Dy(), imaging.Lanczos)
	}
	out, err := EncodePNG(flatten(imaging.OverlayCenter(bg, fg, 1.0)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCompositionFailed, err)
	}
	return out, nil
}
