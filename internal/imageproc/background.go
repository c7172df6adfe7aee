package imageproc

import (
	"context"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/disintegration/imaging"

	"brandstudio/internal/domain"
	"brandstudio/internal/infra"
	"brandstudio/pkg/metrics"
)

const (
	// DefaultQualityThreshold is the free-cutout quality needed to skip the paid path.
	DefaultQualityThreshold = 0.7

	cornerBlock       = 10
	transparentBelow  = 40.0
	featherUntil      = 60.0
	defaultMatTimeout = 30 * time.Second
)

// Matter is a paid matting backend.
type Matter interface {
	HasCredentials() bool
	RemoveBackground(ctx context.Context, data []byte) ([]byte, error)
}

// RemovalResult is a PNG cutout and how it was produced.
type RemovalResult struct {
	Image   []byte
	Method  domain.RemovalMethod
	Quality float64
	CostUSD float64
}

// RemoverOptions configures the background remover.
type RemoverOptions struct {
	Matter      Matter
	Threshold   float64
	Timeout     time.Duration
	PaidCostUSD float64
	Logger      *infra.Logger
}

// BackgroundRemover tries the free colour-distance cutout first and only pays
// for matting when the free result looks poor.
type BackgroundRemover struct {
	matter    Matter
	threshold float64
	timeout   time.Duration
	paidCost  float64
	logger    *infra.Logger
}

func NewBackgroundRemover(opts RemoverOptions) *BackgroundRemover {
	threshold := opts.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultQualityThreshold
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultMatTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &BackgroundRemover{
		matter:    opts.Matter,
		threshold: threshold,
		timeout:   timeout,
		paidCost:  opts.PaidCostUSD,
		logger:    logger,
	}
}

// RemoveBackground returns a transparent PNG of the product in data.
func (r *BackgroundRemover) RemoveBackground(ctx context.Context, data []byte) (RemovalResult, error) {
	started := time.Now()
	defer metrics.ObserveStage("background_removal", started)

	free, freeErr := r.free(data)
	if freeErr == nil && free.Quality >= r.threshold {
		metrics.RemovalMethods.WithLabelValues(string(domain.RemovalFree)).Inc()
		return free, nil
	}

	if r.matter == nil || !r.matter.HasCredentials() {
		if freeErr != nil {
			return RemovalResult{}, fmt.Errorf("%w: %v", domain.ErrBackgroundRemovalFailed, freeErr)
		}
		r.logger.Warn().
			Str("stage", "background_removal").
			Float64("quality", free.Quality).
			Msg("imageproc: paid matting not configured, keeping free cutout")
		metrics.RemovalMethods.WithLabelValues(string(domain.RemovalFree)).Inc()
		return free, nil
	}

	matCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	paidStarted := time.Now()
	cutout, err := r.matter.RemoveBackground(matCtx, data)
	if err == nil {
		_, _, err = DecodeSize(cutout)
	}
	metrics.BackendCall("remove-bg", err)
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("stage", "background_removal").
			Str("backend", "remove-bg").
			Int64("elapsed_ms", time.Since(paidStarted).Milliseconds()).
			Msg("imageproc: paid matting failed")
		if freeErr != nil {
			return RemovalResult{}, fmt.Errorf("%w: free and paid removal failed", domain.ErrBackgroundRemovalFailed)
		}
		metrics.RemovalMethods.WithLabelValues(string(domain.RemovalFree)).Inc()
		return free, nil
	}

	metrics.RemovalMethods.WithLabelValues(string(domain.RemovalPaid)).Inc()
	metrics.AddCost("background_removal", "remove-bg", r.paidCost)
	return RemovalResult{Image: cutout, Method: domain.RemovalPaid, Quality: 0.95, CostUSD: r.paidCost}, nil
}

func (r *BackgroundRemover) free(data []byte) (RemovalResult, error) {
	src, err := Decode(data)
	if err != nil {
		return RemovalResult{}, err
	}
	cut, quality := FreeCutout(src)
	out, err := EncodePNG(cut)
	if err != nil {
		return RemovalResult{}, err
	}
	return RemovalResult{Image: out, Method: domain.RemovalFree, Quality: quality}, nil
}

// FreeCutout masks pixels close to the averaged corner colour and scores the
// result in [0,1].
func FreeCutout(src image.Image) (*image.NRGBA, float64) {
	img := imaging.Clone(src)
	corners := cornerAverages(img)
	if corners.transparent() {
		return img, assessCutout(img, 0)
	}
	bg := corners.mean()

	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		d := rgbDistance([3]float64{float64(pix[i]), float64(pix[i+1]), float64(pix[i+2])}, bg)
		pix[i+3] = uint8(uint32(pix[i+3]) * uint32(cutoutAlpha(d)) / 255)
	}
	return img, assessCutout(img, corners.spread(bg))
}

func cutoutAlpha(d float64) uint8 {
	switch {
	case d < transparentBelow:
		return 0
	case d < featherUntil:
		return uint8(math.Round((d - transparentBelow) / (featherUntil - transparentBelow) * 255))
	default:
		return 255
	}
}

// assessCutout scores the transparent/opaque mix, then penalises soft edges
// and corners that disagree about the background colour.
func assessCutout(img *image.NRGBA, cornerSpread float64) float64 {
	var transparent, opaque, partial int
	pix := img.Pix
	for i := 3; i < len(pix); i += 4 {
		switch a := pix[i]; {
		case a < 10:
			transparent++
		case a > 245:
			opaque++
		default:
			partial++
		}
	}
	total := float64(transparent + opaque + partial)
	if total == 0 {
		return 0
	}
	tr, op := float64(transparent)/total, float64(opaque)/total

	quality := 0.4
	switch {
	case tr > 0.3 && tr < 0.7 && op > 0.5:
		quality = 0.85
	case tr > 0.2 && tr < 0.8 && op > 0.3:
		quality = 0.65
	}
	quality -= math.Min(0.3, 2*float64(partial)/total)
	quality -= math.Min(0.3, math.Max(0, (cornerSpread-10)/100))
	return math.Max(0, math.Min(1, quality))
}

type cornerSet [4][4]float64

func cornerAverages(img *image.NRGBA) cornerSet {
	b := img.Bounds()
	bw, bh := min(cornerBlock, b.Dx()), min(cornerBlock, b.Dy())
	origins := [4]image.Point{
		{b.Min.X, b.Min.Y},
		{b.Max.X - bw, b.Min.Y},
		{b.Min.X, b.Max.Y - bh},
		{b.Max.X - bw, b.Max.Y - bh},
	}
	var out cornerSet
	for c, o := range origins {
		var sum [4]float64
		n := 0
		for y := o.Y; y < o.Y+bh; y++ {
			for x := o.X; x < o.X+bw; x++ {
				i := img.PixOffset(x, y)
				for k := 0; k < 4; k++ {
					sum[k] += float64(img.Pix[i+k])
				}
				n++
			}
		}
		if n > 0 {
			for k := range sum {
				out[c][k] = sum[k] / float64(n)
			}
		}
	}
	return out
}

func (c cornerSet) mean() [3]float64 {
	var m [3]float64
	for _, corner := range c {
		for k := 0; k < 3; k++ {
			m[k] += corner[k] / 4
		}
	}
	return m
}

func (c cornerSet) transparent() bool {
	for _, corner := range c {
		if corner[3] >= 10 {
			return false
		}
	}
	return true
}

// spread is the largest distance from any corner to the mean background.
func (c cornerSet) spread(bg [3]float64) float64 {
	var s float64
	for _, corner := range c {
		s = math.Max(s, rgbDistance([3]float64{corner[0], corner[1], corner[2]}, bg))
	}
	return s
}

func rgbDistance(a, b [3]float64) float64 {
	dr, dg, db := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dr*dr + dg*dg + db*db)
}
