package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"brandstudio/internal/domain"
	"brandstudio/internal/sqlinline"
)

type call struct {
	query string
	args  []any
}

type stubExecutor struct {
	row     []any
	rowErr  error
	execErr error
	tag     pgconn.CommandTag
	calls   []call
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, call{query: query, args: args})
	return s.tag, s.execErr
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.calls = append(s.calls, call{query: query, args: args})
	return stubRow{values: s.row, err: s.rowErr}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d dest for %d values", len(dest), len(r.values))
	}
	for i, d := range dest {
		switch ptr := d.(type) {
		case *string:
			*ptr = r.values[i].(string)
		case *float64:
			*ptr = r.values[i].(float64)
		case *time.Time:
			*ptr = r.values[i].(time.Time)
		case **time.Time:
			if v, ok := r.values[i].(time.Time); ok {
				*ptr = &v
			}
		case **int32:
			if v, ok := r.values[i].(int32); ok {
				*ptr = &v
			}
		default:
			return fmt.Errorf("scan: unsupported dest %T", d)
		}
	}
	return nil
}

const bizID = "0b0e4c1a-6a55-4c47-9d0e-3a1f3f0f8a11"

func TestGetBrandProfile(t *testing.T) {
	exec := &stubExecutor{row: []any{bizID, "Green Thumb Co", "", "#2D6A4F", "#95D5B2", ""}}
	repo := NewBrandRepository(exec)

	p, err := repo.GetBrandProfile(context.Background(), " "+bizID+" ")
	if err != nil {
		t.Fatalf("GetBrandProfile error: %v", err)
	}
	if p.BusinessName != "Green Thumb Co" || p.PrimaryColor != "#2D6A4F" {
		t.Fatalf("unexpected profile %+v", p)
	}
	if exec.calls[0].query != sqlinline.QSelectBrandProfile || exec.calls[0].args[0] != bizID {
		t.Fatalf("unexpected call %+v", exec.calls[0])
	}
}

func TestGetBrandProfileNotFound(t *testing.T) {
	repo := NewBrandRepository(&stubExecutor{rowErr: pgx.ErrNoRows})
	if _, err := repo.GetBrandProfile(context.Background(), bizID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetBrandProfileRejectsBadID(t *testing.T) {
	exec := &stubExecutor{}
	repo := NewBrandRepository(exec)
	if _, err := repo.GetBrandProfile(context.Background(), "acme"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if len(exec.calls) != 0 {
		t.Fatalf("expected no query, got %d", len(exec.calls))
	}
}

func TestRecordUsage(t *testing.T) {
	exec := &stubExecutor{}
	repo := NewUsageRepository(exec)
	ev := domain.UsageEvent{RequestID: "r1", BusinessID: bizID, Stage: "generation", Model: "qwen-image", CostUSD: 0.005}
	if err := repo.Record(context.Background(), ev); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	args := exec.calls[0].args
	if len(args) != 7 {
		t.Fatalf("args = %d, want 7", len(args))
	}
	if args[4] != "none" {
		t.Fatalf("method = %v, want none", args[4])
	}
	if ts, ok := args[6].(time.Time); !ok || ts.IsZero() {
		t.Fatalf("occurred_at not defaulted: %v", args[6])
	}
}

func TestRecordUsageWrapsError(t *testing.T) {
	repo := NewUsageRepository(&stubExecutor{execErr: errors.New("conn reset")})
	err := repo.Record(context.Background(), domain.UsageEvent{Stage: "generation"})
	if err == nil || !strings.Contains(err.Error(), "repo: record usage") {
		t.Fatalf("err = %v", err)
	}
}

func TestSpendSince(t *testing.T) {
	repo := NewUsageRepository(&stubExecutor{row: []any{0.245}})
	total, err := repo.SpendSince(context.Background(), bizID, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("SpendSince error: %v", err)
	}
	if total != 0.245 {
		t.Fatalf("total = %v, want 0.245", total)
	}
}

func TestEnqueueFillsDefaults(t *testing.T) {
	exec := &stubExecutor{}
	repo := NewRatingRepository(exec)
	job := &domain.RatingJob{StorageKey: "generated/x/y.png", BrandColor: "#1D3557"}
	if err := repo.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}
	if job.ID == "" || job.CreatedAt.IsZero() || job.Status != domain.RatingJobQueued {
		t.Fatalf("defaults not applied: %+v", job)
	}
	if exec.calls[0].query != sqlinline.QInsertRatingJob {
		t.Fatalf("unexpected query")
	}
}

func TestEnqueueRequiresStorageKey(t *testing.T) {
	repo := NewRatingRepository(&stubExecutor{})
	if err := repo.Enqueue(context.Background(), &domain.RatingJob{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestClaim(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := NewRatingRepository(&stubExecutor{row: []any{"job-1", bizID, "generated/a.png", "#1D3557", "running", created}})
	job, err := repo.Claim(context.Background())
	if err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if job.ID != "job-1" || job.Status != domain.RatingJobRunning || !job.CreatedAt.Equal(created) {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestClaimEmptyQueue(t *testing.T) {
	repo := NewRatingRepository(&stubExecutor{rowErr: pgx.ErrNoRows})
	job, err := repo.Claim(context.Background())
	if err != nil || job != nil {
		t.Fatalf("Claim = %v, %v; want nil, nil", job, err)
	}
}

func TestSaveRating(t *testing.T) {
	exec := &stubExecutor{tag: pgconn.NewCommandTag("UPDATE 1")}
	repo := NewRatingRepository(exec)
	score := domain.NewQualityScore(100, 80, 0, 60)
	if err := repo.SaveRating(context.Background(), "job-1", score); err != nil {
		t.Fatalf("SaveRating error: %v", err)
	}
	if got := exec.calls[0].args[5]; got != score.OverallScore {
		t.Fatalf("overall arg = %v, want %d", got, score.OverallScore)
	}

	missing := NewRatingRepository(&stubExecutor{tag: pgconn.NewCommandTag("UPDATE 0")})
	if err := missing.SaveRating(context.Background(), "job-2", score); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetByIDWithScore(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	done := created.Add(2 * time.Second)
	exec := &stubExecutor{row: []any{
		bizID, bizID, "generated/a.png", "#1D3557", "succeeded", created, done,
		int32(100), int32(80), int32(0), int32(60), int32(57),
	}}
	job, err := NewRatingRepository(exec).GetByID(context.Background(), bizID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if job.Score == nil || job.Score.OverallScore != 57 || job.Score.TextContrast != 60 {
		t.Fatalf("unexpected score %+v", job.Score)
	}
	if job.CompletedAt == nil || !job.CompletedAt.Equal(done) {
		t.Fatalf("completed_at = %v", job.CompletedAt)
	}
}

func TestGetByIDPending(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	exec := &stubExecutor{row: []any{bizID, "", "generated/a.png", "", "queued", created, nil, nil, nil, nil, nil, nil}}
	job, err := NewRatingRepository(exec).GetByID(context.Background(), bizID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if job.Score != nil || job.CompletedAt != nil || job.Status != domain.RatingJobQueued {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestGetByIDUnknown(t *testing.T) {
	exec := &stubExecutor{}
	if _, err := NewRatingRepository(exec).GetByID(context.Background(), "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(exec.calls) != 0 {
		t.Fatalf("expected no query")
	}
}

func TestRequeueStale(t *testing.T) {
	exec := &stubExecutor{tag: pgconn.NewCommandTag("UPDATE 3")}
	repo := NewRatingRepository(exec)
	cutoff := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	n, err := repo.RequeueStale(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("RequeueStale() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("requeued = %d, want 3", n)
	}
	if len(exec.calls) != 1 || exec.calls[0].query != sqlinline.QRequeueStaleRatingJobs {
		t.Fatalf("unexpected calls: %+v", exec.calls)
	}
	if got := exec.calls[0].args[0].(time.Time); !got.Equal(cutoff) {
		t.Fatalf("cutoff arg = %v, want %v", got, cutoff)
	}

	failing := NewRatingRepository(&stubExecutor{execErr: errors.New("conn reset")})
	if _, err := failing.RequeueStale(context.Background(), cutoff); err == nil || !strings.Contains(err.Error(), "requeue stale") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
