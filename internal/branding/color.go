// Package branding derives brand personality and colour facts from brand hex colours.
package branding

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidHex is returned for anything that is not a #RGB or #RRGGBB colour.
var ErrInvalidHex = errors.New("branding: invalid hex colour")

// HSL holds hue in degrees [0,360) and saturation/lightness as percentages.
type HSL struct {
	H int
	S int
	L int
}

// ParseHex parses "#RRGGBB", "RRGGBB" or "#RGB".
func ParseHex(hex string) (color.RGBA, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidHex, hex)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidHex, hex)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// HexToHSL converts a hex colour to rounded HSL.
func HexToHSL(hex string) (HSL, error) {
	c, err := ParseHex(hex)
	if err != nil {
		return HSL{}, err
	}
	return ToHSL(c), nil
}

// ToHSL converts an opaque colour to rounded HSL.
func ToHSL(c color.Color) HSL {
	h, s, l := hslFloat(c)
	hue := int(math.Round(h*360)) % 360
	return HSL{H: hue, S: int(math.Round(s * 100)), L: int(math.Round(l * 100))}
}

func hslFloat(c color.Color) (h, s, l float64) {
	r16, g16, b16, _ := c.RGBA()
	r := float64(r16>>8) / 255
	g := float64(g16>>8) / 255
	b := float64(b16>>8) / 255

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	delta := maxC - minC
	l = (maxC + minC) / 2
	if delta == 0 {
		return 0, 0, l
	}
	if l > 0.5 {
		s = delta / (2 - maxC - minC)
	} else {
		s = delta / (maxC + minC)
	}
	switch maxC {
	case r:
		h = (g - b) / delta
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/delta + 2
	default:
		h = (r-g)/delta + 4
	}
	return h / 6, s, l
}

// HueDistance is the circular distance between two hues, in [0,180].
func HueDistance(a, b HSL) float64 {
	d := math.Abs(float64(a.H - b.H))
	d = math.Mod(d, 360)
	return math.Min(d, 360-d)
}

// RelativeLuminance follows the WCAG 2 definition.
func RelativeLuminance(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return 0.2126*linearize(float64(r>>8)/255) +
		0.7152*linearize(float64(g>>8)/255) +
		0.0722*linearize(float64(b>>8)/255)
}

func linearize(v float64) float64 {
	if v <= 0.03928 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// ContrastRatio is the WCAG contrast ratio between two colours, in [1,21].
func ContrastRatio(a, b color.Color) float64 {
	la, lb := RelativeLuminance(a), RelativeLuminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

// ColorName approximates a hex colour with a simple name for prompts.
func ColorName(hex string) string {
	c, err := ParseHex(hex)
	if err != nil {
		return "bold accent colour"
	}
	if c.R == c.G && c.G == c.B {
		return "grey"
	}
	hsl := ToHSL(c)
	switch {
	case hsl.S < 15:
		return "neutral"
	case hsl.H < 25:
		return "red"
	case hsl.H < 45:
		return "orange"
	case hsl.H < 70:
		return "yellow"
	case hsl.H < 150:
		return "green"
	case hsl.H < 200:
		return "cyan"
	case hsl.H < 260:
		return "blue"
	case hsl.H < 330:
		return "purple"
	default:
		return "red"
	}
}

// LightingMood returns a lighting tone phrase for the colour's temperature.
func LightingMood(hex string) string {
	const neutral = "Neutral, professional lighting and tone."
	c, err := ParseHex(hex)
	if err != nil || (c.R == c.G && c.G == c.B) {
		return neutral
	}
	h := ToHSL(c).H
	switch {
	case h <= 60 || h >= 300:
		return "Warm, inviting lighting and tone."
	case h >= 160 && h <= 260:
		return "Clean, cool lighting and tone."
	default:
		return neutral
	}
}
