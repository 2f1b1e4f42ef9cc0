package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"elaspicdb/pkg/domain"
)

var _ domain.Transaction = (*transaction)(nil)

// transaction implements domain.Transaction over a *sql.Tx, and the read
// paths over a *sql.DB.
type transaction struct {
	ctx     context.Context
	q       querier
	dialect Dialect
}

// upsertSQL renders an INSERT ... ON CONFLICT DO UPDATE statement over fs.
func upsertSQL(table string, fs []field, conflict []string, returning string) string {
	cols := columns(fs)
	marks := make([]string, len(cols))
	for i := range marks {
		marks[i] = "?"
	}
	isKey := make(map[string]bool, len(conflict))
	for _, c := range conflict {
		isKey[c] = true
	}
	var sets []string
	for _, c := range cols {
		if !isKey[c] {
			sets = append(sets, c+" = excluded."+c)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) ",
		table, strings.Join(cols, ", "), strings.Join(marks, ", "), strings.Join(conflict, ", "))
	if len(sets) == 0 {
		b.WriteString("DO NOTHING")
	} else {
		b.WriteString("DO UPDATE SET " + strings.Join(sets, ", "))
	}
	if returning != "" {
		b.WriteString(" RETURNING " + returning)
	}
	return b.String()
}

func (t *transaction) exec(entity domain.EntityType, query string, args ...any) error {
	if _, err := t.q.ExecContext(t.ctx, t.dialect.rebind(query), args...); err != nil {
		return fmt.Errorf("upsert %s: %w", entity, err)
	}
	return nil
}

func (t *transaction) upsert(table domain.EntityType, fs []field, conflict ...string) error {
	return t.exec(table, upsertSQL(string(table), fs, conflict, ""), values(fs)...)
}

// upsertReturning writes a row whose id may be assigned by the database and
// returns the stored id.
func (t *transaction) upsertReturning(table domain.EntityType, fs []field, idCol string, id int64, natural ...string) (int64, error) {
	conflict := []string{idCol}
	if id == 0 {
		fs = without(fs, idCol)
		conflict = natural
	}
	query := t.dialect.rebind(upsertSQL(string(table), fs, conflict, idCol))
	var stored int64
	if err := t.q.QueryRowContext(t.ctx, query, values(fs)...).Scan(&stored); err != nil {
		return 0, fmt.Errorf("upsert %s: %w", table, err)
	}
	return stored, nil
}

func (t *transaction) exists(query string, args ...any) (bool, error) {
	var one int
	err := t.q.QueryRowContext(t.ctx, t.dialect.rebind(query), args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *transaction) requireParent(entity, parent domain.EntityType, id string, query string, args ...any) error {
	ok, err := t.exists(query, args...)
	if err != nil {
		return fmt.Errorf("check %s parent: %w", entity, err)
	}
	if !ok {
		return domain.MissingParentError{Entity: entity, Parent: parent, ID: id}
	}
	return nil
}

func (t *transaction) UpsertDomain(d domain.Domain) error {
	return t.upsert(domain.EntityDomain, domainFields(&d), "cath_id")
}

func (t *transaction) UpsertDomainContact(c domain.DomainContact) (domain.DomainContact, error) {
	id, err := t.upsertReturning(domain.EntityDomainContact, domainContactFields(&c), "domain_contact_id", c.DomainContactID, "cath_id_1", "cath_id_2")
	if err != nil {
		return domain.DomainContact{}, err
	}
	c.DomainContactID = id
	return c, nil
}

func (t *transaction) UpsertUniprotSequence(s domain.UniprotSequence) error {
	return t.upsert(domain.EntityUniprotSequence, uniprotSequenceFields(&s), "uniprot_id")
}

func (t *transaction) UpsertProvean(p domain.Provean) error {
	return t.upsert(domain.EntityProvean, proveanFields(&p), "uniprot_id")
}

func (t *transaction) UpsertUniprotDomain(d domain.UniprotDomain) (domain.UniprotDomain, error) {
	id, err := t.upsertReturning(domain.EntityUniprotDomain, uniprotDomainFields(&d), "uniprot_domain_id", d.UniprotDomainID, "uniprot_id", "pdbfam_name", "alignment_def")
	if err != nil {
		return domain.UniprotDomain{}, err
	}
	d.UniprotDomainID = id
	return d, nil
}

func (t *transaction) UpsertUniprotDomainPair(p domain.UniprotDomainPair) (domain.UniprotDomainPair, error) {
	id, err := t.upsertReturning(domain.EntityUniprotDomainPair, uniprotDomainPairFields(&p), "uniprot_domain_pair_id", p.UniprotDomainPairID, "uniprot_domain_id_1", "uniprot_domain_id_2")
	if err != nil {
		return domain.UniprotDomainPair{}, err
	}
	p.UniprotDomainPairID = id
	return p, nil
}

// parentCheck names one row a write depends on.
type parentCheck struct {
	parent domain.EntityType
	id     string
	query  string
	arg    any
}

func (t *transaction) requireParents(entity domain.EntityType, checks ...parentCheck) error {
	for _, c := range checks {
		if err := t.requireParent(entity, c.parent, c.id, c.query, c.arg); err != nil {
			return err
		}
	}
	return nil
}

func domainParent(cathID string) parentCheck {
	return parentCheck{domain.EntityDomain, cathID, "SELECT 1 FROM domain WHERE cath_id = ?", cathID}
}

func sequenceParent(uniprotID string) parentCheck {
	return parentCheck{domain.EntityUniprotSequence, uniprotID, "SELECT 1 FROM uniprot_sequence WHERE uniprot_id = ?", uniprotID}
}

func (t *transaction) UpsertUniprotDomainTemplate(tpl domain.UniprotDomainTemplate) error {
	if err := t.requireParents(domain.EntityUniprotDomainTemplate,
		parentCheck{domain.EntityUniprotDomain, strconv.FormatInt(tpl.UniprotDomainID, 10), "SELECT 1 FROM uniprot_domain WHERE uniprot_domain_id = ?", tpl.UniprotDomainID},
		domainParent(tpl.CathID),
	); err != nil {
		return err
	}
	return t.upsert(domain.EntityUniprotDomainTemplate, uniprotDomainTemplateFields(&tpl), "uniprot_domain_id")
}

func (t *transaction) UpsertUniprotDomainModel(m domain.UniprotDomainModel) error {
	if err := t.requireParent(domain.EntityUniprotDomainModel, domain.EntityUniprotDomainTemplate, strconv.FormatInt(m.UniprotDomainID, 10),
		"SELECT 1 FROM uniprot_domain_template WHERE uniprot_domain_id = ?", m.UniprotDomainID); err != nil {
		return err
	}
	return t.upsert(domain.EntityUniprotDomainModel, uniprotDomainModelFields(&m), "uniprot_domain_id")
}

func (t *transaction) UpsertUniprotDomainMutation(m domain.UniprotDomainMutation) error {
	if err := t.requireParent(domain.EntityUniprotDomainMutation, domain.EntityUniprotDomainModel, strconv.FormatInt(m.UniprotDomainID, 10),
		"SELECT 1 FROM uniprot_domain_model WHERE uniprot_domain_id = ?", m.UniprotDomainID); err != nil {
		return err
	}
	if err := t.requireParents(domain.EntityUniprotDomainMutation, sequenceParent(m.UniprotID)); err != nil {
		return err
	}
	return t.upsert(domain.EntityUniprotDomainMutation, uniprotDomainMutationFields(&m), "uniprot_id", "uniprot_domain_id", "mutation")
}

func (t *transaction) UpsertUniprotDomainPairTemplate(tpl domain.UniprotDomainPairTemplate) error {
	if err := t.requireParents(domain.EntityUniprotDomainPairTemplate,
		parentCheck{domain.EntityUniprotDomainPair, strconv.FormatInt(tpl.UniprotDomainPairID, 10), "SELECT 1 FROM uniprot_domain_pair WHERE uniprot_domain_pair_id = ?", tpl.UniprotDomainPairID},
		parentCheck{domain.EntityDomainContact, strconv.FormatInt(tpl.DomainContactID, 10), "SELECT 1 FROM domain_contact WHERE domain_contact_id = ?", tpl.DomainContactID},
		domainParent(tpl.CathID1),
		domainParent(tpl.CathID2),
	); err != nil {
		return err
	}
	return t.upsert(domain.EntityUniprotDomainPairTemplate, uniprotDomainPairTemplateFields(&tpl), "uniprot_domain_pair_id")
}

func (t *transaction) UpsertUniprotDomainPairModel(m domain.UniprotDomainPairModel) error {
	if err := t.requireParent(domain.EntityUniprotDomainPairModel, domain.EntityUniprotDomainPairTemplate, strconv.FormatInt(m.UniprotDomainPairID, 10),
		"SELECT 1 FROM uniprot_domain_pair_template WHERE uniprot_domain_pair_id = ?", m.UniprotDomainPairID); err != nil {
		return err
	}
	return t.upsert(domain.EntityUniprotDomainPairModel, uniprotDomainPairModelFields(&m), "uniprot_domain_pair_id")
}

func (t *transaction) UpsertUniprotDomainPairMutation(m domain.UniprotDomainPairMutation) error {
	if err := t.requireParent(domain.EntityUniprotDomainPairMutation, domain.EntityUniprotDomainPairModel, strconv.FormatInt(m.UniprotDomainPairID, 10),
		"SELECT 1 FROM uniprot_domain_pair_model WHERE uniprot_domain_pair_id = ?", m.UniprotDomainPairID); err != nil {
		return err
	}
	if err := t.requireParents(domain.EntityUniprotDomainPairMutation, sequenceParent(m.UniprotID)); err != nil {
		return err
	}
	return t.upsert(domain.EntityUniprotDomainPairMutation, uniprotDomainPairMutationFields(&m), "uniprot_id", "uniprot_domain_pair_id", "mutation")
}

func (t *transaction) FindUniprotSequence(uniprotID string) (domain.UniprotSequence, bool, error) {
	var s domain.UniprotSequence
	fs := uniprotSequenceFields(&s)
	ok, err := t.one(fmt.Sprintf("SELECT %s FROM uniprot_sequence WHERE uniprot_id = ?", selectList("", fs)), fs, uniprotID)
	if err != nil || !ok {
		return domain.UniprotSequence{}, ok, err
	}
	return s, true, nil
}

func (t *transaction) FindUniprotDomain(id int64) (domain.UniprotDomain, bool, error) {
	var d domain.UniprotDomain
	fs := uniprotDomainFields(&d)
	ok, err := t.one(fmt.Sprintf("SELECT %s FROM uniprot_domain WHERE uniprot_domain_id = ?", selectList("", fs)), fs, id)
	if err != nil || !ok {
		return domain.UniprotDomain{}, ok, err
	}
	return d, true, nil
}

// one scans a single row into fs, reporting whether a row was found.
func (t *transaction) one(query string, fs []field, args ...any) (bool, error) {
	err := t.q.QueryRowContext(t.ctx, t.dialect.rebind(query), args...).Scan(dests(fs)...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// many runs query and scans every row with scan, which must return fresh
// destinations for each row and a commit hook called once the row is read.
// Rows are fully drained before returning so callers can issue follow-up
// queries on single-connection databases.
func (t *transaction) many(query string, next func() ([]any, func()), args ...any) error {
	rows, err := t.q.QueryContext(t.ctx, t.dialect.rebind(query), args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		targets, done := next()
		if err := rows.Scan(targets...); err != nil {
			return err
		}
		done()
	}
	return rows.Err()
}
