package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"elaspicdb/pkg/domain"
)

// pfamFilter renders a case-insensitive predicate preselecting rows whose
// column may match any of names. With subdomains the predicate is a LIKE
// prefilter; callers confirm each row with domain.MatchPfamName.
func pfamFilter(col string, names []string, subdomains bool) (string, []any) {
	if len(names) == 0 {
		return "1 = 0", nil
	}
	parts := make([]string, 0, len(names))
	args := make([]any, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(name)
		if subdomains {
			parts = append(parts, "LOWER("+col+`) LIKE ? ESCAPE '\'`)
			args = append(args, "%"+escapeLike(name)+"%")
			continue
		}
		parts = append(parts, "LOWER("+col+") = ?")
		args = append(args, name)
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func matchesAny(name string, queries []string, subdomains bool) bool {
	for _, q := range queries {
		if domain.MatchPfamName(name, q, subdomains) {
			return true
		}
	}
	return false
}

// FindDomains returns the structural domains whose pdbfam name matches any of
// pfamNames, ordered by cath id.
func (s *Store) FindDomains(ctx context.Context, pfamNames []string, subdomains bool) ([]domain.Domain, error) {
	where, args := pfamFilter("pdb_pdbfam_name", pfamNames, subdomains)
	var probe domain.Domain
	query := fmt.Sprintf("SELECT %s FROM domain WHERE %s ORDER BY cath_id", selectList("", domainFields(&probe)), where)
	var out []domain.Domain
	err := s.reader(ctx).many(query, func() ([]any, func()) {
		var d domain.Domain
		return dests(domainFields(&d)), func() {
			if matchesAny(d.PDBPdbfamName, pfamNames, subdomains) {
				out = append(out, d)
			}
		}
	}, args...)
	if err != nil {
		return nil, fmt.Errorf("find domains: %w", err)
	}
	return out, nil
}

// FindDomainContacts returns contacts whose first domain matches pfamNames1
// and whose second domain matches pfamNames2, with both domains attached.
func (s *Store) FindDomainContacts(ctx context.Context, pfamNames1, pfamNames2 []string, subdomains bool) ([]domain.DomainContact, error) {
	where1, args1 := pfamFilter("d1.pdb_pdbfam_name", pfamNames1, subdomains)
	where2, args2 := pfamFilter("d2.pdb_pdbfam_name", pfamNames2, subdomains)
	var pc domain.DomainContact
	var pd1, pd2 domain.Domain
	query := fmt.Sprintf(`SELECT %s, %s, %s FROM domain_contact c
JOIN domain d1 ON d1.cath_id = c.cath_id_1
JOIN domain d2 ON d2.cath_id = c.cath_id_2
WHERE %s AND %s ORDER BY c.domain_contact_id`,
		selectList("c", domainContactFields(&pc)), selectList("d1", domainFields(&pd1)), selectList("d2", domainFields(&pd2)), where1, where2)
	var out []domain.DomainContact
	err := s.reader(ctx).many(query, func() ([]any, func()) {
		var c domain.DomainContact
		var d1, d2 domain.Domain
		targets := dests(domainContactFields(&c))
		targets = append(targets, dests(domainFields(&d1))...)
		targets = append(targets, dests(domainFields(&d2))...)
		return targets, func() {
			if !matchesAny(d1.PDBPdbfamName, pfamNames1, subdomains) || !matchesAny(d2.PDBPdbfamName, pfamNames2, subdomains) {
				return
			}
			c.Domain1, c.Domain2 = &d1, &d2
			out = append(out, c)
		}
	}, append(args1, args2...)...)
	if err != nil {
		return nil, fmt.Errorf("find domain contacts: %w", err)
	}
	return out, nil
}

// GetUniprotSequence returns a sequence with its Provean record attached.
func (s *Store) GetUniprotSequence(ctx context.Context, uniprotID string) (domain.UniprotSequence, bool, error) {
	r := s.reader(ctx)
	seq, ok, err := r.FindUniprotSequence(uniprotID)
	if err != nil {
		return domain.UniprotSequence{}, false, fmt.Errorf("get uniprot sequence: %w", err)
	}
	if !ok {
		return domain.UniprotSequence{}, false, nil
	}
	if err := r.attachProvean(&seq); err != nil {
		return domain.UniprotSequence{}, false, err
	}
	return seq, true, nil
}

// ListUniprotDomains returns the domains of a protein, each with its sequence,
// template, template domain and model attached where present.
func (s *Store) ListUniprotDomains(ctx context.Context, uniprotID string) ([]domain.UniprotDomain, error) {
	r := s.reader(ctx)
	var probe domain.UniprotDomain
	query := fmt.Sprintf("SELECT %s FROM uniprot_domain WHERE uniprot_id = ? ORDER BY uniprot_domain_id", selectList("", uniprotDomainFields(&probe)))
	var out []domain.UniprotDomain
	err := r.many(query, func() ([]any, func()) {
		var d domain.UniprotDomain
		return dests(uniprotDomainFields(&d)), func() { out = append(out, d) }
	}, uniprotID)
	if err != nil {
		return nil, fmt.Errorf("list uniprot domains: %w", err)
	}
	seqs := map[string]*domain.UniprotSequence{}
	for i := range out {
		if err := r.hydrateUniprotDomain(&out[i], seqs); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ListUniprotDomainPairs returns the domain pairs in which either side
// belongs to uniprotID, with both domains, the template (contact and both
// template domains) and the model attached.
func (s *Store) ListUniprotDomainPairs(ctx context.Context, uniprotID string) ([]domain.UniprotDomainPair, error) {
	r := s.reader(ctx)
	var probe domain.UniprotDomainPair
	query := fmt.Sprintf(`SELECT %s FROM uniprot_domain_pair p
JOIN uniprot_domain d1 ON d1.uniprot_domain_id = p.uniprot_domain_id_1
JOIN uniprot_domain d2 ON d2.uniprot_domain_id = p.uniprot_domain_id_2
WHERE d1.uniprot_id = ? OR d2.uniprot_id = ? ORDER BY p.uniprot_domain_pair_id`, selectList("p", uniprotDomainPairFields(&probe)))
	var out []domain.UniprotDomainPair
	err := r.many(query, func() ([]any, func()) {
		var p domain.UniprotDomainPair
		return dests(uniprotDomainPairFields(&p)), func() { out = append(out, p) }
	}, uniprotID, uniprotID)
	if err != nil {
		return nil, fmt.Errorf("list uniprot domain pairs: %w", err)
	}
	seqs := map[string]*domain.UniprotSequence{}
	for i := range out {
		if err := r.hydrateUniprotDomainPair(&out[i], seqs); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetUniprotDomainMutation looks up a domain mutation by domain id and mutation.
func (s *Store) GetUniprotDomainMutation(ctx context.Context, uniprotDomainID int64, mutation string) (domain.UniprotDomainMutation, bool, error) {
	var m domain.UniprotDomainMutation
	fs := uniprotDomainMutationFields(&m)
	query := fmt.Sprintf("SELECT %s FROM uniprot_domain_mutation WHERE uniprot_domain_id = ? AND mutation = ? ORDER BY uniprot_id LIMIT 1", selectList("", fs))
	ok, err := s.reader(ctx).one(query, fs, uniprotDomainID, mutation)
	if err != nil {
		return domain.UniprotDomainMutation{}, false, fmt.Errorf("get uniprot domain mutation: %w", err)
	}
	if !ok {
		return domain.UniprotDomainMutation{}, false, nil
	}
	return m, true, nil
}

// GetUniprotDomainPairMutation looks up a pair mutation by its natural key.
func (s *Store) GetUniprotDomainPairMutation(ctx context.Context, uniprotID string, uniprotDomainPairID int64, mutation string) (domain.UniprotDomainPairMutation, bool, error) {
	var m domain.UniprotDomainPairMutation
	fs := uniprotDomainPairMutationFields(&m)
	query := fmt.Sprintf("SELECT %s FROM uniprot_domain_pair_mutation WHERE uniprot_id = ? AND uniprot_domain_pair_id = ? AND mutation = ?", selectList("", fs))
	ok, err := s.reader(ctx).one(query, fs, uniprotID, uniprotDomainPairID, mutation)
	if err != nil {
		return domain.UniprotDomainPairMutation{}, false, fmt.Errorf("get uniprot domain pair mutation: %w", err)
	}
	if !ok {
		return domain.UniprotDomainPairMutation{}, false, nil
	}
	return m, true, nil
}

// --- hydration ---

func (t *transaction) attachProvean(seq *domain.UniprotSequence) error {
	var p domain.Provean
	fs := proveanFields(&p)
	ok, err := t.one(fmt.Sprintf("SELECT %s FROM provean WHERE uniprot_id = ?", selectList("", fs)), fs, seq.UniprotID)
	if err != nil {
		return fmt.Errorf("load provean %s: %w", seq.UniprotID, err)
	}
	if ok {
		seq.Provean = &p
	}
	return nil
}

// sequence loads a sequence once per call site, sharing it across domains.
func (t *transaction) sequence(uniprotID string, cache map[string]*domain.UniprotSequence) (*domain.UniprotSequence, error) {
	if seq, ok := cache[uniprotID]; ok {
		return seq, nil
	}
	seq, ok, err := t.FindUniprotSequence(uniprotID)
	if err != nil {
		return nil, fmt.Errorf("load uniprot sequence %s: %w", uniprotID, err)
	}
	if !ok {
		cache[uniprotID] = nil
		return nil, nil
	}
	if err := t.attachProvean(&seq); err != nil {
		return nil, err
	}
	cache[uniprotID] = &seq
	return &seq, nil
}

func (t *transaction) domainByCathID(cathID string) (*domain.Domain, error) {
	var d domain.Domain
	fs := domainFields(&d)
	ok, err := t.one(fmt.Sprintf("SELECT %s FROM domain WHERE cath_id = ?", selectList("", fs)), fs, cathID)
	if err != nil {
		return nil, fmt.Errorf("load domain %s: %w", cathID, err)
	}
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (t *transaction) hydrateUniprotDomain(d *domain.UniprotDomain, seqs map[string]*domain.UniprotSequence) error {
	seq, err := t.sequence(d.UniprotID, seqs)
	if err != nil {
		return err
	}
	d.Sequence = seq

	var tpl domain.UniprotDomainTemplate
	tfs := uniprotDomainTemplateFields(&tpl)
	ok, err := t.one(fmt.Sprintf("SELECT %s FROM uniprot_domain_template WHERE uniprot_domain_id = ?", selectList("", tfs)), tfs, d.UniprotDomainID)
	if err != nil {
		return fmt.Errorf("load template %d: %w", d.UniprotDomainID, err)
	}
	if !ok {
		return nil
	}
	if tpl.Domain, err = t.domainByCathID(tpl.CathID); err != nil {
		return err
	}
	var m domain.UniprotDomainModel
	mfs := uniprotDomainModelFields(&m)
	ok, err = t.one(fmt.Sprintf("SELECT %s FROM uniprot_domain_model WHERE uniprot_domain_id = ?", selectList("", mfs)), mfs, d.UniprotDomainID)
	if err != nil {
		return fmt.Errorf("load model %d: %w", d.UniprotDomainID, err)
	}
	if ok {
		tpl.Model = &m
	}
	d.Template = &tpl
	return nil
}

func (t *transaction) hydrateUniprotDomainPair(p *domain.UniprotDomainPair, seqs map[string]*domain.UniprotSequence) error {
	for _, side := range []struct {
		id  int64
		dst **domain.UniprotDomain
	}{{p.UniprotDomainID1, &p.UniprotDomain1}, {p.UniprotDomainID2, &p.UniprotDomain2}} {
		d, ok, err := t.FindUniprotDomain(side.id)
		if err != nil {
			return fmt.Errorf("load uniprot domain %d: %w", side.id, err)
		}
		if !ok {
			continue
		}
		if d.Sequence, err = t.sequence(d.UniprotID, seqs); err != nil {
			return err
		}
		*side.dst = &d
	}

	var tpl domain.UniprotDomainPairTemplate
	tfs := uniprotDomainPairTemplateFields(&tpl)
	ok, err := t.one(fmt.Sprintf("SELECT %s FROM uniprot_domain_pair_template WHERE uniprot_domain_pair_id = ?", selectList("", tfs)), tfs, p.UniprotDomainPairID)
	if err != nil {
		return fmt.Errorf("load pair template %d: %w", p.UniprotDomainPairID, err)
	}
	if !ok {
		return nil
	}
	var c domain.DomainContact
	cfs := domainContactFields(&c)
	found, err := t.one(fmt.Sprintf("SELECT %s FROM domain_contact WHERE domain_contact_id = ?", selectList("", cfs)), cfs, tpl.DomainContactID)
	if err != nil {
		return fmt.Errorf("load domain contact %d: %w", tpl.DomainContactID, err)
	}
	if found {
		tpl.DomainContact = &c
	}
	if tpl.Domain1, err = t.domainByCathID(tpl.CathID1); err != nil {
		return err
	}
	if tpl.Domain2, err = t.domainByCathID(tpl.CathID2); err != nil {
		return err
	}
	var m domain.UniprotDomainPairModel
	mfs := uniprotDomainPairModelFields(&m)
	found, err = t.one(fmt.Sprintf("SELECT %s FROM uniprot_domain_pair_model WHERE uniprot_domain_pair_id = ?", selectList("", mfs)), mfs, p.UniprotDomainPairID)
	if err != nil {
		return fmt.Errorf("load pair model %d: %w", p.UniprotDomainPairID, err)
	}
	if found {
		tpl.Model = &m
	}
	p.Template = &tpl
	return nil
}
