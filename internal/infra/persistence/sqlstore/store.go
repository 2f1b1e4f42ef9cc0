// Package sqlstore implements the relational persistent store on top of
// database/sql. Dialect-specific packages (sqlite, postgres) open the
// connection and hand it to New; everything above the driver lives here.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"elaspicdb/internal/entitymodel/sqlbundle"
	"elaspicdb/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Dialect selects the DDL bundle and placeholder style.
type Dialect string

const (
	// SQLite uses `?` placeholders and the SQLite DDL bundle.
	SQLite Dialect = "sqlite"
	// Postgres uses `$n` placeholders and the Postgres DDL bundle.
	Postgres Dialect = "postgres"
)

func (d Dialect) ddl() string {
	if d == Postgres {
		return sqlbundle.Postgres()
	}
	return sqlbundle.SQLite()
}

// rebind rewrites `?` placeholders into the dialect's native form.
func (d Dialect) rebind(query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// querier is the subset shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists pipeline entities in a relational database.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database and applies the schema DDL.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect}
	if err := s.CreateSchema(ctx, false); err != nil {
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect reports the SQL dialect in use.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// CreateSchema applies the DDL. With clear set, every table except the
// preserved sequence table is dropped first.
func (s *Store) CreateSchema(ctx context.Context, clear bool) error {
	if clear {
		for _, table := range sqlbundle.ClearableTables() {
			if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
				return fmt.Errorf("drop %s: %w", table, err)
			}
		}
	}
	return applyDDLStatements(ctx, s.db, s.dialect.ddl())
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func applyDDLStatements(ctx context.Context, db execer, ddl string) error {
	for _, stmt := range sqlbundle.SplitStatements(ddl) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

// serialColumns lists the id columns the database assigns.
var serialColumns = []struct{ table, column string }{
	{"domain_contact", "domain_contact_id"},
	{"uniprot_domain", "uniprot_domain_id"},
	{"uniprot_domain_pair", "uniprot_domain_pair_id"},
}

// SyncSequences moves each id sequence past the largest stored id so rows
// inserted with explicit ids do not collide with later assigned ones.
// SQLite derives the next rowid from the table and needs nothing.
func (s *Store) SyncSequences(ctx context.Context) error {
	if s.dialect != Postgres {
		return nil
	}
	for _, c := range serialColumns {
		query := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', '%s'), COALESCE(MAX(%s), 0) + 1, false) FROM %s",
			c.table, c.column, c.column, c.table)
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("sync %s sequence: %w", c.table, err)
		}
	}
	return nil
}

// RunInTransaction applies fn within a database transaction, committing when
// fn returns nil and rolling back otherwise.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()
	if err := fn(&transaction{ctx: ctx, q: sqlTx, dialect: s.dialect}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func (s *Store) reader(ctx context.Context) *transaction {
	return &transaction{ctx: ctx, q: s.db, dialect: s.dialect}
}

// UpdateDomainErrors replaces the error text of a structural domain.
func (s *Store) UpdateDomainErrors(ctx context.Context, cathID, errors string) error {
	return s.update(ctx, domain.EntityDomain, cathID,
		"UPDATE domain SET domain_errors = ? WHERE cath_id = ?", nullable(errors), cathID)
}

// UpdateDomainContactErrors replaces the error text of a domain contact.
func (s *Store) UpdateDomainContactErrors(ctx context.Context, domainContactID int64, errors string) error {
	return s.update(ctx, domain.EntityDomainContact, strconv.FormatInt(domainContactID, 10),
		"UPDATE domain_contact SET domain_contact_errors = ? WHERE domain_contact_id = ?", nullable(errors), domainContactID)
}

// SetDomainContactErrors replaces the error text of the contact between two domains.
func (s *Store) SetDomainContactErrors(ctx context.Context, cathID1, cathID2, errors string) error {
	return s.update(ctx, domain.EntityDomainContact, cathID1+"/"+cathID2,
		"UPDATE domain_contact SET domain_contact_errors = ? WHERE cath_id_1 = ? AND cath_id_2 = ?", nullable(errors), cathID1, cathID2)
}

func (s *Store) update(ctx context.Context, entity domain.EntityType, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: %w", entity, err)
	}
	if n == 0 {
		return domain.ErrNotFound{Entity: entity, ID: id}
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
