package schema

import (
	"testing"

	sqldocs "elaspicdb/docs/schema/sql"
)

func TestVersionIsStable(t *testing.T) {
	got := Version()
	if len(got) != 12 {
		t.Fatalf("expected 12 hex characters, got %q", got)
	}
	if Version() != got {
		t.Fatalf("version must be memoised")
	}
}

func TestDescribe(t *testing.T) {
	meta := Describe()
	if len(meta) != 2 || meta[0].Dialect != "sqlite" || meta[1].Dialect != "postgres" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	for _, m := range meta {
		if m.Statements < 12 {
			t.Fatalf("%s: expected at least one statement per table, got %d", m.Dialect, m.Statements)
		}
		if m.Fingerprint == "" {
			t.Fatalf("%s: empty fingerprint", m.Dialect)
		}
	}
	if meta[0].Fingerprint == meta[1].Fingerprint {
		t.Fatalf("dialects should not share a fingerprint")
	}
}

func TestNormalizeIgnoresCommentsAndBlankLines(t *testing.T) {
	a := normalize("-- header\nCREATE TABLE x (id INTEGER);\n\n")
	b := normalize("  CREATE TABLE x (id INTEGER);  \n")
	if a != b {
		t.Fatalf("normalize mismatch: %q vs %q", a, b)
	}
	if normalize(sqldocs.SQLite) == "" {
		t.Fatalf("embedded sqlite DDL is empty")
	}
}
