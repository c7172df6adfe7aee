// Package rating scores finished images against the brand and runs scoring
// off the request path.
package rating

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"

	"brandstudio/internal/branding"
	"brandstudio/internal/domain"
	"brandstudio/internal/imageproc"
	"brandstudio/pkg/metrics"
)

const (
	// PersonalityBaseline stands in for brand personality fit until a learned
	// model replaces it.
	PersonalityBaseline = 80

	noBrandColorScore = 75
	bottomFraction    = 0.2
	focalGain         = 2.5
)

// Rater computes QualityScore values. It holds no state.
type Rater struct{}

func NewRater() *Rater { return &Rater{} }

// Rate scores data against the brand primary colour.
func (r *Rater) Rate(data []byte, brandPrimary string) (domain.QualityScore, error) {
	img, err := imageproc.Decode(data)
	if err != nil {
		return domain.QualityScore{}, fmt.Errorf("%w: %v", domain.ErrRatingUnavailable, err)
	}
	score := domain.NewQualityScore(
		BrandColorMatch(img, brandPrimary),
		PersonalityBaseline,
		FocalPointClarity(img),
		TextContrast(img),
	)
	metrics.OverallScore.Observe(float64(score.OverallScore))
	return score, nil
}

// BrandColorMatch compares the hue of the dominant colour with the brand hue.
func BrandColorMatch(img image.Image, brandPrimary string) int {
	if strings.TrimSpace(brandPrimary) == "" {
		return noBrandColorScore
	}
	brand, err := branding.HexToHSL(brandPrimary)
	if err != nil {
		return noBrandColorScore
	}
	d := branding.HueDistance(brand, branding.ToHSL(DominantColor(img)))
	return domain.ClampScore(int(math.Round(100 - d/1.8)))
}

// DominantColor buckets pixels at 4 bits per channel and returns the mean
// colour of the fullest bucket. Mostly transparent pixels are ignored.
func DominantColor(img image.Image) color.NRGBA {
	src := imaging.Clone(img)
	var counts [4096]int
	var sums [4096][3]int
	pix := src.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		if pix[i+3] < 128 {
			continue
		}
		r, g, b := pix[i], pix[i+1], pix[i+2]
		bucket := int(r>>4)<<8 | int(g>>4)<<4 | int(b>>4)
		counts[bucket]++
		sums[bucket][0] += int(r)
		sums[bucket][1] += int(g)
		sums[bucket][2] += int(b)
	}
	best := -1
	for i, n := range counts {
		if n > 0 && (best < 0 || n > counts[best]) {
			best = i
		}
	}
	if best < 0 {
		return color.NRGBA{A: 255}
	}
	n := counts[best]
	return color.NRGBA{
		R: uint8(sums[best][0] / n),
		G: uint8(sums[best][1] / n),
		B: uint8(sums[best][2] / n),
		A: 255,
	}
}

// FocalPointClarity is the mean absolute Laplacian response of the greyscale
// image, scaled and capped at 100.
func FocalPointClarity(img image.Image) int {
	gray := imaging.Grayscale(img)
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	if w < 3 || h < 3 {
		return 0
	}
	at := func(x, y int) int { return int(gray.Pix[gray.PixOffset(x, y)]) }

	var sum float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			v := 8*at(x, y) -
				at(x-1, y-1) - at(x, y-1) - at(x+1, y-1) -
				at(x-1, y) - at(x+1, y) -
				at(x-1, y+1) - at(x, y+1) - at(x+1, y+1)
			sum += math.Abs(float64(v))
		}
	}
	mean := sum / float64((w-2)*(h-2))
	return domain.ClampScore(int(math.Round(mean * focalGain)))
}

// TextContrast rewards a very dark or very light bottom band, where overlay
// text usually sits.
func TextContrast(img image.Image) int {
	b := img.Bounds()
	cropH := max(1, int(float64(b.Dy())*bottomFraction))
	band := imaging.Grayscale(imaging.Crop(img, image.Rect(b.Min.X, b.Max.Y-cropH, b.Max.X, b.Max.Y)))
	var sum, n int
	for i := 0; i < len(band.Pix); i += 4 {
		sum += int(band.Pix[i])
		n++
	}
	if n == 0 {
		return 60
	}
	mean := float64(sum) / float64(n)
	if mean < 50 || mean > 200 {
		return 90
	}
	return 60
}
