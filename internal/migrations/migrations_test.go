package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestDriverURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@localhost:5432/brand?sslmode=disable":   "pgx5://u:p@localhost:5432/brand?sslmode=disable",
		"postgresql://u:p@localhost:5432/brand?sslmode=disable": "pgx5://u:p@localhost:5432/brand?sslmode=disable",
		"pgx5://localhost/brand":                                "pgx5://localhost/brand",
	}
	for in, want := range tests {
		if got := DriverURL(in); got != want {
			t.Fatalf("DriverURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSourceReadsFirstMigration(t *testing.T) {
	src, err := Source()
	if err != nil {
		t.Fatalf("Source() error = %v", err)
	}
	defer src.Close()

	version, err := src.First()
	if err != nil {
		t.Fatalf("First() error = %v", err)
	}
	if version != 1 {
		t.Fatalf("first version = %d, want 1", version)
	}
	up, _, err := src.ReadUp(version)
	if err != nil {
		t.Fatalf("ReadUp() error = %v", err)
	}
	up.Close()
}

func TestEveryUpHasDown(t *testing.T) {
	entries, err := fs.ReadDir(files, "sql")
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}
	for name := range names {
		if strings.HasSuffix(name, ".up.sql") {
			down := strings.TrimSuffix(name, ".up.sql") + ".down.sql"
			if !names[down] {
				t.Fatalf("%s has no matching %s", name, down)
			}
		}
	}
}

func TestSchemaCoversQueriedTables(t *testing.T) {
	data, err := fs.ReadFile(files, "sql/000001_init.up.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	schema := string(data)
	for _, table := range []string{"businesses", "integration_tokens", "usage_events", "rating_jobs"} {
		if !strings.Contains(schema, "create table if not exists "+table+" (") {
			t.Fatalf("schema missing table %s", table)
		}
	}
}
