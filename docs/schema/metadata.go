// Package schema exposes metadata about the embedded pipeline DDL for runtime
// use.
package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	sqldocs "elaspicdb/docs/schema/sql"
)

// Metadata summarises the embedded DDL of one dialect.
type Metadata struct {
	Dialect     string `json:"dialect"`
	Fingerprint string `json:"fingerprint"`
	Statements  int    `json:"statements"`
}

var (
	versionOnce sync.Once
	version     string
)

// Version returns a short fingerprint of both dialects' DDL. It changes
// whenever a table definition changes, so databases created by different
// builds can be told apart.
func Version() string {
	versionOnce.Do(func() {
		sum := sha256.New()
		for _, ddl := range []string{sqldocs.SQLite, sqldocs.Postgres} {
			sum.Write([]byte(normalize(ddl)))
			sum.Write([]byte{0})
		}
		version = hex.EncodeToString(sum.Sum(nil))[:12]
	})
	return version
}

// Describe returns the metadata of the SQLite and Postgres DDL.
func Describe() []Metadata {
	out := make([]Metadata, 0, 2)
	for _, d := range []struct{ name, ddl string }{{"sqlite", sqldocs.SQLite}, {"postgres", sqldocs.Postgres}} {
		norm := normalize(d.ddl)
		sum := sha256.Sum256([]byte(norm))
		out = append(out, Metadata{
			Dialect:     d.name,
			Fingerprint: hex.EncodeToString(sum[:])[:12],
			Statements:  strings.Count(norm, ";"),
		})
	}
	return out
}

// normalize drops comments and blank lines so formatting edits keep the
// fingerprint stable.
func normalize(ddl string) string {
	var b strings.Builder
	for _, line := range strings.Split(ddl, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
