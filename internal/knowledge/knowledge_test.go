package knowledge

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFileJSONKeepsOrderAndCardinality(t *testing.T) {
	path := writeFile(t, "kb.json", `{"faqs":[
		{"question":"Koliko traje kurs?","answer":"30 dana."},
		{"question":"Da li je plaćanje jednokratno?","answer":"Plaćanje je jednokratno."},
		{"question":"Da li dobijam sertifikat?","answer":"Da, nakon završetka."}
	]}`)

	base, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if base.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", base.Len())
	}
	entries := base.Entries()
	if entries[0].Question != "Koliko traje kurs?" || entries[2].Answer != "Da, nakon završetka." {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestLoadFileBareJSONList(t *testing.T) {
	path := writeFile(t, "kb.json", `[{"question":"Q1","answer":"A1"}]`)
	base, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if base.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", base.Len())
	}
}

func TestLoadFileYAML(t *testing.T) {
	path := writeFile(t, "kb.yaml", "faqs:\n  - question: Q1\n    answer: A1\n  - question: Q2\n    answer: A2\n")
	base, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if base.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", base.Len())
	}
	if got := base.Entries()[1].Question; got != "Q2" {
		t.Fatalf("Entries()[1].Question = %q, want %q", got, "Q2")
	}
}

func TestLoadFileFailures(t *testing.T) {
	cases := []struct {
		name string
		file string
		body string
		want error
	}{
		{name: "malformed json", file: "kb.json", body: `{"faqs": [`},
		{name: "missing faqs key", file: "kb.json", body: `{"items": []}`, want: ErrMalformedShape},
		{name: "empty list", file: "kb.json", body: `{"faqs": []}`, want: ErrEmpty},
		{name: "missing answer", file: "kb.json", body: `{"faqs":[{"question":"Q1","answer":"A1"},{"question":"Q2"}]}`, want: ErrMissingField},
		{name: "blank question", file: "kb.json", body: `[{"question":"  ","answer":"A1"}]`, want: ErrMissingField},
		{name: "yaml scalar", file: "kb.yml", body: "just text\n", want: ErrMalformedShape},
		{name: "unknown extension", file: "kb.txt", body: "Q1=A1", want: ErrUnknownFormat},
	}
	for _, tc := range cases {
		path := writeFile(t, tc.file, tc.body)
		base, err := LoadFile(path)
		if err == nil {
			t.Fatalf("%s: LoadFile() returned %d entries, want error", tc.name, base.Len())
		}
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			t.Fatalf("%s: error = %T, want *LoadError", tc.name, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s: error = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"))
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("error = %v, want *LoadError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("error = %v, want os.ErrNotExist", err)
	}
}

func TestNewSourceUsesFileWithoutDatabaseURL(t *testing.T) {
	path := writeFile(t, "kb.json", `[{"question":"Q1","answer":"A1"}]`)
	base, err := NewSource(context.Background(), path, "  ")
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	if base.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", base.Len())
	}
}

func TestLoadPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		t.Skip("TEST_DATABASE_URL is not a URL")
	}
	ctx := context.Background()

	admin, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer admin.Close()

	schema := fmt.Sprintf("zinger_kb_%d", time.Now().UnixNano())
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() { admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE") })

	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	scoped := u.String()

	var loadErr *LoadError
	if _, err := LoadPostgres(ctx, scoped); !errors.As(err, &loadErr) || loadErr.Source != postgresSource {
		t.Fatalf("LoadPostgres() on missing table error = %v, want *LoadError", err)
	}
	var exists bool
	if err := admin.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = $1)`, schema).Scan(&exists); err != nil {
		t.Fatalf("check tables: %v", err)
	}
	if exists {
		t.Fatalf("LoadPostgres() created tables in %s", schema)
	}

	if _, err := admin.Exec(ctx, `CREATE TABLE `+schema+`.faq_entries (
		id BIGSERIAL PRIMARY KEY,
		position INTEGER NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL
	)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := admin.Exec(ctx, `INSERT INTO `+schema+`.faq_entries (position, question, answer)
		VALUES (2, 'Q2', 'A2'), (1, 'Q1', 'A1')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	base, err := LoadPostgres(ctx, scoped)
	if err != nil {
		t.Fatalf("LoadPostgres() error = %v", err)
	}
	got := base.Examples(2)
	if len(got) != 2 || got[0].Question != "Q1" || got[1].Question != "Q2" {
		t.Fatalf("Examples(2) = %+v, want Q1 then Q2", got)
	}
}

func TestExamplesTakesFromFront(t *testing.T) {
	base, err := NewBase([]Entry{
		{Question: "Q1", Answer: "A1"},
		{Question: "Q2", Answer: "A2"},
		{Question: "Q3", Answer: "A3"},
	})
	if err != nil {
		t.Fatalf("NewBase() error = %v", err)
	}
	got := base.Examples(2)
	if len(got) != 2 || got[0].Question != "Q1" || got[1].Question != "Q2" {
		t.Fatalf("Examples(2) = %+v", got)
	}
	if got := base.Examples(10); len(got) != 3 {
		t.Fatalf("len(Examples(10)) = %d, want 3", len(got))
	}
	if got := base.Examples(0); got != nil {
		t.Fatalf("Examples(0) = %+v, want nil", got)
	}
}
