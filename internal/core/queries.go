package core

import (
	"context"
	"errors"
	"fmt"

	"elaspicdb/internal/uniprot"
	"elaspicdb/pkg/domain"
)

// GetDomain returns the structural domains annotated with any of pfamNames,
// one per cath id. With subdomains, names such as "X_1", "X+Y" and "Y+X"
// also match "X".
func (s *Service) GetDomain(ctx context.Context, pfamNames []string, subdomains bool) ([]domain.Domain, error) {
	var out []domain.Domain
	err := s.run(ctx, "get_domain", func(ctx context.Context) error {
		domains, err := s.store.FindDomains(ctx, pfamNames, subdomains)
		if err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(domains))
		for _, d := range domains {
			if _, ok := seen[d.CathID]; ok {
				continue
			}
			seen[d.CathID] = struct{}{}
			out = append(out, d)
		}
		if len(out) == 0 {
			s.logger.Debug("no domain definitions found", "pfam_names", pfamNames)
		}
		return nil
	})
	return out, err
}

// GetDomainContact returns the contact templates between the two families in
// both orientations: forward holds contacts whose first domain matches
// pfamNames1, reverse those whose first domain matches pfamNames2.
func (s *Service) GetDomainContact(ctx context.Context, pfamNames1, pfamNames2 []string, subdomains bool) (forward, reverse []domain.DomainContact, err error) {
	err = s.run(ctx, "get_domain_contact", func(ctx context.Context) error {
		var err error
		if forward, err = s.findContacts(ctx, pfamNames1, pfamNames2, subdomains); err != nil {
			return err
		}
		if reverse, err = s.findContacts(ctx, pfamNames2, pfamNames1, subdomains); err != nil {
			return err
		}
		if len(forward) == 0 && len(reverse) == 0 {
			s.logger.Debug("no domain contact template found", "pfam_names_1", pfamNames1, "pfam_names_2", pfamNames2)
		}
		return nil
	})
	return forward, reverse, err
}

func (s *Service) findContacts(ctx context.Context, names1, names2 []string, subdomains bool) ([]domain.DomainContact, error) {
	contacts, err := s.store.FindDomainContacts(ctx, names1, names2, subdomains)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, len(contacts))
	out := contacts[:0]
	for _, c := range contacts {
		if _, ok := seen[c.DomainContactID]; ok {
			continue
		}
		seen[c.DomainContactID] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

// GetUniprotDomain returns the domains of a protein that have a structural
// template. With copyData, the alignment and model of every modelled domain
// are restored into the temporary tier together with the protein's Provean
// supporting set.
func (s *Service) GetUniprotDomain(ctx context.Context, uniprotID string, copyData bool) ([]domain.UniprotDomain, error) {
	var out []domain.UniprotDomain
	err := s.run(ctx, "get_uniprot_domain", func(ctx context.Context) error {
		domains, err := s.store.ListUniprotDomains(ctx, uniprotID)
		if err != nil {
			return err
		}
		for i := range domains {
			d := &domains[i]
			if d.Template == nil {
				s.logger.Debug("skipping uniprot domain without a structural template", "uniprot_domain_id", d.UniprotDomainID)
				continue
			}
			if copyData && d.Template.Model != nil {
				if err := s.copyUniprotDomainData(ctx, d); err != nil {
					return err
				}
			}
			out = append(out, *d)
		}
		return nil
	})
	return out, err
}

// GetUniprotDomainPair returns the domain pairs involving a protein that have
// a structural template. With copyData, the alignments and model of every
// modelled pair are restored, along with the Provean supporting set of the
// side that belongs to uniprotID.
func (s *Service) GetUniprotDomainPair(ctx context.Context, uniprotID string, copyData bool) ([]domain.UniprotDomainPair, error) {
	var out []domain.UniprotDomainPair
	err := s.run(ctx, "get_uniprot_domain_pair", func(ctx context.Context) error {
		pairs, err := s.store.ListUniprotDomainPairs(ctx, uniprotID)
		if err != nil {
			return err
		}
		for i := range pairs {
			p := &pairs[i]
			if p.Template == nil {
				s.logger.Debug("skipping uniprot domain pair without a structural template", "uniprot_domain_pair_id", p.UniprotDomainPairID)
				continue
			}
			if copyData && p.Template.Model != nil {
				if err := s.copyUniprotDomainPairData(ctx, p, uniprotID); err != nil {
					return err
				}
			}
			out = append(out, *p)
		}
		return nil
	})
	return out, err
}

func (s *Service) copyUniprotDomainData(ctx context.Context, d *domain.UniprotDomain) error {
	m := d.Template.Model
	if d.PathToData == "" || m.AlignmentFilename == "" || m.ModelFilename == "" {
		return nil
	}
	if err := s.restore(ctx, d.PathToData, m.Artifacts()...); err != nil {
		return err
	}
	s.copyProvean(ctx, d)
	return nil
}

func (s *Service) copyUniprotDomainPairData(ctx context.Context, p *domain.UniprotDomainPair, uniprotID string) error {
	m := p.Template.Model
	if p.PathToData == "" || m.AlignmentFilename1 == "" || m.AlignmentFilename2 == "" || m.ModelFilename == "" {
		return nil
	}
	if err := s.restore(ctx, p.PathToData, m.Artifacts()...); err != nil {
		return err
	}
	switch {
	case p.UniprotDomain1 != nil && p.UniprotDomain1.UniprotID == uniprotID:
		s.copyProvean(ctx, p.UniprotDomain1)
	case p.UniprotDomain2 != nil && p.UniprotDomain2.UniprotID == uniprotID:
		s.copyProvean(ctx, p.UniprotDomain2)
	}
	return nil
}

// copyProvean restores the supporting set of a domain's sequence. Failures
// are logged and clear the supporting-set filename on the returned record.
func (s *Service) copyProvean(ctx context.Context, d *domain.UniprotDomain) {
	if d.Sequence == nil || d.Sequence.Provean == nil || d.Sequence.Provean.ProveanSupsetFilename == "" {
		return
	}
	provean := d.Sequence.Provean
	base, err := domain.UniprotBasePath(*d.Sequence)
	if err == nil {
		err = s.restore(ctx, base, provean.ProveanSupsetFilename, provean.ProveanSupsetFilename+".fasta")
	}
	if err != nil {
		s.logger.Error("could not copy provean supporting set files, removing provean info",
			"uniprot_id", d.UniprotID, "supset", provean.ProveanSupsetFilename, "error", err)
		provean.ProveanSupsetFilename = ""
	}
}

func (s *Service) restore(ctx context.Context, prefix string, names ...string) error {
	if err := s.requireArtifacts(); err != nil {
		return err
	}
	for _, name := range names {
		if err := s.artifacts.Restore(ctx, prefix, name); err != nil {
			return err
		}
	}
	return nil
}

// GetUniprotDomainMutation returns the mutation record of a domain, restoring
// its wild-type and mutant structures. It returns nil when the mutation has
// not been evaluated.
func (s *Service) GetUniprotDomainMutation(ctx context.Context, d domain.UniprotDomain, mutation string) (*domain.UniprotDomainMutation, error) {
	var out *domain.UniprotDomainMutation
	err := s.run(ctx, "get_uniprot_domain_mutation", func(ctx context.Context) error {
		mut, ok, err := s.store.GetUniprotDomainMutation(ctx, d.UniprotDomainID, mutation)
		if err != nil || !ok {
			return err
		}
		if err := s.restore(ctx, d.PathToData, mut.Structures()...); err != nil {
			return err
		}
		out = &mut
		return nil
	})
	return out, err
}

// GetUniprotDomainPairMutation returns the mutation of uniprotID's side of a
// domain pair, restoring its structures. It returns nil when absent.
func (s *Service) GetUniprotDomainPairMutation(ctx context.Context, p domain.UniprotDomainPair, uniprotID, mutation string) (*domain.UniprotDomainPairMutation, error) {
	var out *domain.UniprotDomainPairMutation
	err := s.run(ctx, "get_uniprot_domain_pair_mutation", func(ctx context.Context) error {
		mut, ok, err := s.store.GetUniprotDomainPairMutation(ctx, uniprotID, p.UniprotDomainPairID, mutation)
		if err != nil || !ok {
			return err
		}
		if err := s.restore(ctx, p.PathToData, mut.Structures()...); err != nil {
			return err
		}
		out = &mut
		return nil
	})
	return out, err
}

// GetUniprotSequence looks a sequence up in the database. When it is absent
// and checkExternal is set, the sequence is fetched remotely and stored.
// A nil result means no sequence could be found.
func (s *Service) GetUniprotSequence(ctx context.Context, uniprotID string, checkExternal bool) (*domain.UniprotSequence, error) {
	var out *domain.UniprotSequence
	err := s.run(ctx, "get_uniprot_sequence", func(ctx context.Context) error {
		seq, ok, err := s.store.GetUniprotSequence(ctx, uniprotID)
		if err != nil {
			return err
		}
		if ok {
			out = &seq
			return nil
		}
		if !checkExternal || s.fetcher == nil {
			s.logger.Debug("no sequence found and not looking for it online", "uniprot_id", uniprotID)
			return nil
		}
		s.logger.Debug("fetching sequence from an online server", "uniprot_id", uniprotID)
		seq, err = s.fetcher.FetchSequence(ctx, uniprotID)
		var mismatch uniprot.MismatchError
		switch {
		case errors.As(err, &mismatch):
			s.logger.Warn("fetched sequence has a different accession, skipping", "requested", mismatch.Requested, "got", mismatch.Got)
			return nil
		case errors.Is(err, uniprot.ErrNotFound):
			s.logger.Debug("sequence not found online", "uniprot_id", uniprotID, "error", err)
			return nil
		case err != nil:
			return err
		}
		if err := s.addUniprotSequence(ctx, seq); err != nil {
			return err
		}
		out = &seq
		return nil
	})
	return out, err
}

// AddUniprotSequence stores a sequence, replacing any row with the same accession.
func (s *Service) AddUniprotSequence(ctx context.Context, seq domain.UniprotSequence) error {
	return s.run(ctx, "add_uniprot_sequence", func(ctx context.Context) error {
		return s.addUniprotSequence(ctx, seq)
	})
}

func (s *Service) addUniprotSequence(ctx context.Context, seq domain.UniprotSequence) error {
	return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.UpsertUniprotSequence(seq)
	})
}

// UpdateDomainErrors records errors on a structural domain.
func (s *Service) UpdateDomainErrors(ctx context.Context, cathID, errs string) error {
	return s.run(ctx, "update_domain_errors", func(ctx context.Context) error {
		return s.store.UpdateDomainErrors(ctx, cathID, errs)
	})
}

// UpdateDomainContactErrors records errors on a domain contact.
func (s *Service) UpdateDomainContactErrors(ctx context.Context, domainContactID int64, errs string) error {
	return s.run(ctx, "update_domain_contact_errors", func(ctx context.Context) error {
		return s.store.UpdateDomainContactErrors(ctx, domainContactID, errs)
	})
}

// AddTemplateErrors attaches errors to the structure behind a template: the
// domain of a UniprotDomainTemplate or the contact of a UniprotDomainPairTemplate.
func (s *Service) AddTemplateErrors(ctx context.Context, template any, errs string) error {
	return s.run(ctx, "add_template_errors", func(ctx context.Context) error {
		switch t := template.(type) {
		case domain.UniprotDomainTemplate:
			return s.store.UpdateDomainErrors(ctx, t.CathID, errs)
		case *domain.UniprotDomainTemplate:
			return s.store.UpdateDomainErrors(ctx, t.CathID, errs)
		case domain.UniprotDomainPairTemplate:
			return s.store.SetDomainContactErrors(ctx, t.CathID1, t.CathID2, errs)
		case *domain.UniprotDomainPairTemplate:
			return s.store.SetDomainContactErrors(ctx, t.CathID1, t.CathID2, errs)
		default:
			return fmt.Errorf("add template errors: unsupported template type %T", template)
		}
	})
}
