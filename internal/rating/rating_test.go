package rating

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandstudio/internal/domain"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRateSolidBrandColour(t *testing.T) {
	data := encode(t, solid(64, 64, color.NRGBA{R: 0xE6, G: 0x39, B: 0x46, A: 255}))

	score, err := NewRater().Rate(data, "#E63946")
	require.NoError(t, err)
	assert.Equal(t, 100, score.BrandColorMatch)
	assert.Equal(t, PersonalityBaseline, score.BrandPersonalityFit)
	assert.Equal(t, 0, score.FocalPointClarity)
	assert.Equal(t, 60, score.TextContrast)
	assert.Equal(t, 57, score.OverallScore)
}

func TestRateOverallMatchesWeights(t *testing.T) {
	data := encode(t, solid(32, 32, color.NRGBA{A: 255}))
	score, err := NewRater().Rate(data, "")
	require.NoError(t, err)

	want := domain.NewQualityScore(score.BrandColorMatch, score.BrandPersonalityFit, score.FocalPointClarity, score.TextContrast)
	assert.Equal(t, want.OverallScore, score.OverallScore)
	assert.Equal(t, 75, score.BrandColorMatch)
	assert.Equal(t, 90, score.TextContrast)
}

func TestRateUndecodable(t *testing.T) {
	_, err := NewRater().Rate([]byte("nope"), "#000000")
	assert.ErrorIs(t, err, domain.ErrRatingUnavailable)
}

func TestBrandColorMatch(t *testing.T) {
	cyan := solid(8, 8, color.NRGBA{G: 255, B: 255, A: 255})
	assert.Equal(t, 0, BrandColorMatch(cyan, "#FF0000"))
	assert.Equal(t, 100, BrandColorMatch(cyan, "#00FFFF"))
	assert.Equal(t, 75, BrandColorMatch(cyan, "not-a-colour"))
}

func TestDominantColor(t *testing.T) {
	img := solid(10, 10, color.NRGBA{B: 255, A: 255})
	for y := 0; y < 4; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, DominantColor(img))
}

func TestFocalPointClarity(t *testing.T) {
	checker := solid(16, 16, color.White)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if (x+y)%2 == 0 {
				checker.Set(x, y, color.Black)
			}
		}
	}
	assert.Equal(t, 100, FocalPointClarity(checker))
	assert.Equal(t, 0, FocalPointClarity(solid(16, 16, color.White)))
	assert.Equal(t, 0, FocalPointClarity(solid(2, 2, color.White)))
}

func TestTextContrast(t *testing.T) {
	img := solid(20, 20, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	assert.Equal(t, 60, TextContrast(img))

	for y := 16; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.White)
		}
	}
	assert.Equal(t, 90, TextContrast(img))
}

type memorySink struct {
	mu     sync.Mutex
	scores map[string]domain.QualityScore
	failed map[string]string
}

func newMemorySink() *memorySink {
	return &memorySink{scores: map[string]domain.QualityScore{}, failed: map[string]string{}}
}

func (s *memorySink) SaveRating(ctx context.Context, jobID string, score domain.QualityScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[jobID] = score
	return nil
}

func (s *memorySink) MarkFailed(ctx context.Context, jobID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[jobID] = reason
	return nil
}

func TestPoolScoresQueuedJobs(t *testing.T) {
	sink := newMemorySink()
	pool := NewPool(nil, PoolOptions{Workers: 3, QueueSize: 8, Sink: sink})
	pool.Start(context.Background())

	data := encode(t, solid(16, 16, color.Black))
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, pool.Submit(Job{ID: id, Image: data, BrandColor: "#000000"}))
	}
	require.NoError(t, pool.Submit(Job{ID: "bad", Image: []byte("x")}))
	require.NoError(t, pool.Close())

	assert.Len(t, sink.scores, 3)
	assert.Equal(t, 90, sink.scores["a"].TextContrast)
	assert.Equal(t, "quality rating is unavailable", sink.failed["bad"])
}

func TestPoolFullQueueDoesNotBlock(t *testing.T) {
	pool := NewPool(nil, PoolOptions{Workers: 1, QueueSize: 1})

	require.NoError(t, pool.Submit(Job{ID: "1"}))
	err := pool.Submit(Job{ID: "2"})
	assert.ErrorIs(t, err, domain.ErrRatingUnavailable)
	assert.Equal(t, 1, pool.Pending())
	require.NoError(t, pool.Close())
}

func TestPoolRejectsAfterClose(t *testing.T) {
	pool := NewPool(nil, PoolOptions{})
	pool.Start(context.Background())
	require.NoError(t, pool.Close())
	require.NoError(t, pool.Close())

	assert.ErrorIs(t, pool.Submit(Job{ID: "late"}), domain.ErrRatingUnavailable)
}
