package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeGo(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLintAcceptsMarkedQueries(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "q.go", "package q\n\nconst QOne = `--sql 0b1c2d3e-4f50-4617-8293-a4b5c6d7e8f9\nSELECT 1`\n\nconst Label = \"pick a style to select\"\n")

	l := newLinter()
	if err := l.lintPath(dir); err != nil {
		t.Fatalf("lint: %v", err)
	}
	if vs := l.finish(); len(vs) != 0 {
		t.Fatalf("expected no violations, got %+v", vs)
	}
}

func TestLintFlagsMissingMarker(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "q.go", "package q\n\nconst QBare = `SELECT id FROM rating_jobs`\n")

	l := newLinter()
	if err := l.lintPath(dir); err != nil {
		t.Fatalf("lint: %v", err)
	}
	vs := l.finish()
	if len(vs) != 1 || vs[0].name != "QBare" || !strings.Contains(vs[0].message, "missing") {
		t.Fatalf("unexpected violations: %+v", vs)
	}
}

func TestLintFlagsDuplicateMarkers(t *testing.T) {
	dir := t.TempDir()
	const id = "--sql 11111111-2222-4333-8444-555555555555"
	writeGo(t, dir, "a.go", "package q\n\nconst QA = `"+id+"\nSELECT 1`\n")
	writeGo(t, dir, "b.go", "package q\n\nconst QB = `"+id+"\nDELETE FROM usage_events`\n")

	l := newLinter()
	if err := l.lintPath(dir); err != nil {
		t.Fatalf("lint: %v", err)
	}
	vs := l.finish()
	if len(vs) != 2 {
		t.Fatalf("expected both duplicates reported, got %+v", vs)
	}
	for _, v := range vs {
		if !strings.Contains(v.message, "duplicate marker") {
			t.Fatalf("unexpected message %q", v.message)
		}
	}
}

func TestLintSkipsTestsAndUnderscoreDirs(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "q_test.go", "package q\n\nconst QT = `SELECT 1`\n")
	hidden := filepath.Join(dir, "_scratch")
	if err := os.Mkdir(hidden, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeGo(t, hidden, "q.go", "package q\n\nconst QH = `SELECT 1`\n")

	l := newLinter()
	if err := l.lintPath(dir); err != nil {
		t.Fatalf("lint: %v", err)
	}
	if vs := l.finish(); len(vs) != 0 {
		t.Fatalf("expected skipped files, got %+v", vs)
	}
}
