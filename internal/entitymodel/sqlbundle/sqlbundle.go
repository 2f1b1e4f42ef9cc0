// Package sqlbundle exposes the schema DDL bundles and table metadata for
// persistence adapters.
package sqlbundle

import (
	"bufio"
	"strings"

	sqldocs "elaspicdb/docs/schema/sql"
)

// Tables lists every table in creation order. Parents precede children, so
// dropping in reverse order never violates a foreign key.
var Tables = []string{
	"domain",
	"domain_contact",
	"uniprot_sequence",
	"provean",
	"uniprot_domain",
	"uniprot_domain_pair",
	"uniprot_domain_template",
	"uniprot_domain_model",
	"uniprot_domain_mutation",
	"uniprot_domain_pair_template",
	"uniprot_domain_pair_model",
	"uniprot_domain_pair_mutation",
}

// PreservedTables are never dropped when a schema is cleared: they mirror an
// external sequence database that is expensive to reload.
var PreservedTables = map[string]bool{
	"uniprot_sequence": true,
}

// ClearableTables returns the tables to drop when clearing the schema, in
// reverse creation order.
func ClearableTables() []string {
	out := make([]string, 0, len(Tables))
	for i := len(Tables) - 1; i >= 0; i-- {
		if !PreservedTables[Tables[i]] {
			out = append(out, Tables[i])
		}
	}
	return out
}

// SQLite returns the SQLite DDL for the pipeline schema.
func SQLite() string {
	return sqldocs.SQLite
}

// Postgres returns the Postgres DDL for the pipeline schema.
func Postgres() string {
	return sqldocs.Postgres
}

// SplitStatements splits a semicolon-terminated DDL script into executable statements.
// It drops blank lines and single-line comments that start with "--".
func SplitStatements(ddl string) []string {
	scanner := bufio.NewScanner(strings.NewReader(ddl))
	var stmts []string
	var current strings.Builder

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}

	if tail := strings.TrimSpace(current.String()); tail != "" {
		stmts = append(stmts, tail)
	}

	return stmts
}
