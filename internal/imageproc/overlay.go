package imageproc

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"brandstudio/internal/branding"
	"brandstudio/internal/domain"
	"brandstudio/pkg/metrics"
)

// OverlayPosition is the edge the text band sits on.
type OverlayPosition string

const (
	OverlayBottom OverlayPosition = "bottom"
	OverlayTop    OverlayPosition = "top"
)

const (
	bandFraction      = 0.18
	defaultBarOpacity = 0.9
	minFontSize       = 8.0
	fallbackBarColor  = "#1F2937"
)

// OverlayOptions describes the branded text bar.
type OverlayOptions struct {
	Headline     string
	BusinessName string
	BrandColor   string
	Position     OverlayPosition
	BarOpacity   float64
}

// TextRenderer draws a brand-coloured band with a headline and business name.
type TextRenderer struct {
	bold    *opentype.Font
	regular *opentype.Font
}

// NewTextRenderer parses the bundled Go fonts.
func NewTextRenderer() (*TextRenderer, error) {
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("imageproc: parse bold font: %w", err)
	}
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("imageproc: parse regular font: %w", err)
	}
	return &TextRenderer{bold: bold, regular: regular}, nil
}

// Apply returns data with the text band drawn on it. On any failure the
// original bytes come back together with an ErrOverlayFailed error.
func (r *TextRenderer) Apply(data []byte, opts OverlayOptions) (out []byte, err error) {
	started := time.Now()
	defer metrics.ObserveStage("overlay", started)
	defer func() {
		if rec := recover(); rec != nil {
			out, err = data, fmt.Errorf("%w: panic: %v", domain.ErrOverlayFailed, rec)
		}
	}()

	if r == nil || r.bold == nil || r.regular == nil {
		return data, fmt.Errorf("%w: fonts not loaded", domain.ErrOverlayFailed)
	}
	src, err := Decode(data)
	if err != nil {
		return data, fmt.Errorf("%w: %v", domain.ErrOverlayFailed, err)
	}

	canvas := imaging.Clone(src)
	w, h := canvas.Bounds().Dx(), canvas.Bounds().Dy()
	band := BandRect(w, h, opts.Position)

	bar := BarColorFor(opts.BrandColor)
	opacity := opts.BarOpacity
	if opacity <= 0 || opacity > 1 {
		opacity = defaultBarOpacity
	}
	bar.A = uint8(math.Round(opacity * 255))
	draw.Draw(canvas, band, image.NewUniform(bar), image.Point{}, draw.Over)

	ink := image.NewUniform(TextColorFor(opts.BrandColor))
	pad := max(8, w/32)
	maxWidth := w - 2*pad
	bandH := float64(band.Dy())

	headline := strings.TrimSpace(opts.Headline)
	name := strings.ToUpper(strings.TrimSpace(opts.BusinessName))
	switch {
	case headline != "" && name != "":
		if err := r.drawCentered(canvas, r.bold, headline, bandH*0.38, maxWidth, band.Min.Y+int(bandH*0.5), ink); err != nil {
			return data, err
		}
		if err := r.drawCentered(canvas, r.regular, name, bandH*0.18, maxWidth, band.Min.Y+int(bandH*0.82), ink); err != nil {
			return data, err
		}
	case headline != "":
		if err := r.drawCentered(canvas, r.bold, headline, bandH*0.42, maxWidth, band.Min.Y+int(bandH*0.64), ink); err != nil {
			return data, err
		}
	case name != "":
		if err := r.drawCentered(canvas, r.regular, name, bandH*0.3, maxWidth, band.Min.Y+int(bandH*0.6), ink); err != nil {
			return data, err
		}
	}

	encoded, err := EncodePNG(canvas)
	if err != nil {
		return data, fmt.Errorf("%w: %v", domain.ErrOverlayFailed, err)
	}
	return encoded, nil
}

// drawCentered draws text horizontally centred with its baseline at y,
// shrinking the face until it fits maxWidth.
func (r *TextRenderer) drawCentered(dst draw.Image, f *opentype.Font, text string, size float64, maxWidth, y int, ink image.Image) error {
	face, width, err := fitFace(f, text, size, maxWidth)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrOverlayFailed, err)
	}
	defer face.Close()

	x := (dst.Bounds().Dx() - width) / 2
	d := &font.Drawer{Dst: dst, Src: ink, Face: face, Dot: fixed.P(x, y)}
	d.DrawString(text)
	return nil
}

func fitFace(f *opentype.Font, text string, size float64, maxWidth int) (font.Face, int, error) {
	for {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			return nil, 0, err
		}
		width := font.MeasureString(face, text).Ceil()
		if width <= maxWidth || size <= minFontSize {
			return face, width, nil
		}
		face.Close()
		size = math.Max(minFontSize, size*0.9)
	}
}

// BandRect is the text band: 18% of the height along the top or bottom edge.
func BandRect(w, h int, pos OverlayPosition) image.Rectangle {
	bandH := max(1, int(math.Round(float64(h)*bandFraction)))
	if pos == OverlayTop {
		return image.Rect(0, 0, w, bandH)
	}
	return image.Rect(0, h-bandH, w, h)
}

// BarColorFor parses the brand colour, falling back to a dark slate.
func BarColorFor(brand string) color.NRGBA {
	c, err := branding.ParseHex(brand)
	if err != nil {
		c, _ = branding.ParseHex(fallbackBarColor)
	}
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

var (
	textBlack = color.NRGBA{A: 255}
	textWhite = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// TextColorFor picks black or white, whichever contrasts more with the brand colour.
func TextColorFor(brand string) color.NRGBA {
	bar := BarColorFor(brand)
	if branding.ContrastRatio(bar, textBlack) >= branding.ContrastRatio(bar, textWhite) {
		return textBlack
	}
	return textWhite
}

// ParseOverlayPosition maps user input to a band position, defaulting to bottom.
func ParseOverlayPosition(s string) OverlayPosition {
	if OverlayPosition(strings.ToLower(strings.TrimSpace(s))) == OverlayTop {
		return OverlayTop
	}
	return OverlayBottom
}

const maxHeadlineLen = 50

var (
	percentOffRe = regexp.MustCompile(`(?i)(\d+%\s*(?:off|discount))`)
	dollarRe     = regexp.MustCompile(`(\$\d+(?:\.\d{2})?)`)
	headlineJunk = regexp.MustCompile(`[^\p{L}\p{N}\s'’-]`)
)

// DeriveHeadline turns a topic into a short overlay headline. Promotions win,
// otherwise the first six words are title-cased.
func DeriveHeadline(topic string) string {
	if m := percentOffRe.FindString(topic); m != "" {
		return strings.ToUpper(m)
	}
	if m := dollarRe.FindString(topic); m != "" {
		return m
	}
	words := strings.Fields(headlineJunk.ReplaceAllString(topic, ""))
	if len(words) > 6 {
		words = words[:6]
	}
	title := cases.Title(language.English).String(strings.Join(words, " "))
	if runes := []rune(title); len(runes) > maxHeadlineLen {
		title = strings.TrimSpace(string(runes[:maxHeadlineLen-3])) + "..."
	}
	return title
}
