package core

import (
	"context"
	"fmt"
	pathpkg "path"
	"strings"

	"elaspicdb/pkg/domain"
)

// Archive record names.
const (
	TemplateRecord = "template.json"
	ModelRecord    = "model.json"
	MutationRecord = "mutation.json"
)

// MergeRows inserts or replaces the given rows in one transaction. Rows may
// be entity values or pointers; generated ids are written back through
// pointers. It does nothing when the database is immutable.
func (s *Service) MergeRows(ctx context.Context, rows ...any) error {
	return s.run(ctx, "merge_rows", func(ctx context.Context) error {
		return s.mergeRows(ctx, rows...)
	})
}

func (s *Service) mergeRows(ctx context.Context, rows ...any) error {
	if s.immutable {
		s.logger.Debug("database is immutable, not merging rows", "rows", len(rows))
		return nil
	}
	return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		for _, row := range rows {
			if err := upsertRow(tx, row); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertRow(tx domain.Transaction, row any) error {
	switch r := row.(type) {
	case domain.Domain:
		return tx.UpsertDomain(r)
	case *domain.Domain:
		return tx.UpsertDomain(*r)
	case domain.DomainContact:
		_, err := tx.UpsertDomainContact(r)
		return err
	case *domain.DomainContact:
		saved, err := tx.UpsertDomainContact(*r)
		if err == nil {
			r.DomainContactID = saved.DomainContactID
		}
		return err
	case domain.UniprotSequence:
		return tx.UpsertUniprotSequence(r)
	case *domain.UniprotSequence:
		return tx.UpsertUniprotSequence(*r)
	case domain.Provean:
		return tx.UpsertProvean(r)
	case *domain.Provean:
		return tx.UpsertProvean(*r)
	case domain.UniprotDomain:
		_, err := tx.UpsertUniprotDomain(r)
		return err
	case *domain.UniprotDomain:
		saved, err := tx.UpsertUniprotDomain(*r)
		if err == nil {
			r.UniprotDomainID = saved.UniprotDomainID
		}
		return err
	case domain.UniprotDomainPair:
		_, err := tx.UpsertUniprotDomainPair(r)
		return err
	case *domain.UniprotDomainPair:
		saved, err := tx.UpsertUniprotDomainPair(*r)
		if err == nil {
			r.UniprotDomainPairID = saved.UniprotDomainPairID
		}
		return err
	case domain.UniprotDomainTemplate:
		return tx.UpsertUniprotDomainTemplate(r)
	case *domain.UniprotDomainTemplate:
		return tx.UpsertUniprotDomainTemplate(*r)
	case domain.UniprotDomainModel:
		return tx.UpsertUniprotDomainModel(r)
	case *domain.UniprotDomainModel:
		return tx.UpsertUniprotDomainModel(*r)
	case domain.UniprotDomainMutation:
		return tx.UpsertUniprotDomainMutation(r)
	case *domain.UniprotDomainMutation:
		return tx.UpsertUniprotDomainMutation(*r)
	case domain.UniprotDomainPairTemplate:
		return tx.UpsertUniprotDomainPairTemplate(r)
	case *domain.UniprotDomainPairTemplate:
		return tx.UpsertUniprotDomainPairTemplate(*r)
	case domain.UniprotDomainPairModel:
		return tx.UpsertUniprotDomainPairModel(r)
	case *domain.UniprotDomainPairModel:
		return tx.UpsertUniprotDomainPairModel(*r)
	case domain.UniprotDomainPairMutation:
		return tx.UpsertUniprotDomainPairMutation(r)
	case *domain.UniprotDomainPairMutation:
		return tx.UpsertUniprotDomainPairMutation(*r)
	default:
		return fmt.Errorf("merge: unsupported row type %T", row)
	}
}

// MergeProvean archives the supporting set under basePath when both the set
// and its FASTA file are present in the temporary tier, then stores the row.
func (s *Service) MergeProvean(ctx context.Context, provean domain.Provean, basePath string) error {
	return s.run(ctx, "merge_provean", func(ctx context.Context) error {
		name := provean.ProveanSupsetFilename
		if name != "" && s.artifacts != nil && s.artifacts.InTemp(basePath, name) && s.artifacts.InTemp(basePath, name+".fasta") {
			s.logger.Debug("moving provean supset to the archive", "path", basePath, "supset", name)
			if err := s.archive(ctx, basePath, name, name+".fasta"); err != nil {
				return err
			}
		}
		return s.mergeRows(ctx, provean)
	})
}

// MergeDomainModel archives the template and model records of a domain,
// followed by its alignment and model structure, and then stores the
// template and model rows.
func (s *Service) MergeDomainModel(ctx context.Context, d domain.UniprotDomain) error {
	return s.run(ctx, "merge_domain_model", func(ctx context.Context) error {
		if d.Template == nil {
			return fmt.Errorf("merge model: uniprot domain %d has no template", d.UniprotDomainID)
		}
		template := *d.Template
		if template.UniprotDomainID == 0 {
			template.UniprotDomainID = d.UniprotDomainID
		}
		now := s.clock.Now().UTC()
		if template.TDateModified.IsZero() {
			template.TDateModified = now
		}
		rows := []any{template}
		var model any
		var files []string
		if d.Template.Model != nil {
			m := *d.Template.Model
			if m.UniprotDomainID == 0 {
				m.UniprotDomainID = template.UniprotDomainID
			}
			if m.MDateModified.IsZero() {
				m.MDateModified = now
			}
			if m.ModelFilename != "" {
				files = m.Artifacts()
			}
			model = m
			rows = append(rows, m)
		}
		if d.PathToData != "" {
			if err := s.archiveModel(ctx, d.PathToData, template, model, files); err != nil {
				return err
			}
		}
		return s.mergeRows(ctx, rows...)
	})
}

// MergeDomainPairModel is MergeDomainModel for a domain pair; both
// alignments are archived.
func (s *Service) MergeDomainPairModel(ctx context.Context, p domain.UniprotDomainPair) error {
	return s.run(ctx, "merge_domain_pair_model", func(ctx context.Context) error {
		if p.Template == nil {
			return fmt.Errorf("merge model: uniprot domain pair %d has no template", p.UniprotDomainPairID)
		}
		template := *p.Template
		if template.UniprotDomainPairID == 0 {
			template.UniprotDomainPairID = p.UniprotDomainPairID
		}
		now := s.clock.Now().UTC()
		if template.TDateModified.IsZero() {
			template.TDateModified = now
		}
		rows := []any{template}
		var model any
		var files []string
		if p.Template.Model != nil {
			m := *p.Template.Model
			if m.UniprotDomainPairID == 0 {
				m.UniprotDomainPairID = template.UniprotDomainPairID
			}
			if m.MDateModified.IsZero() {
				m.MDateModified = now
			}
			if m.ModelFilename != "" {
				files = m.Artifacts()
			}
			model = m
			rows = append(rows, m)
		}
		if p.PathToData != "" {
			if err := s.archiveModel(ctx, p.PathToData, template, model, files); err != nil {
				return err
			}
		}
		return s.mergeRows(ctx, rows...)
	})
}

// archiveModel writes the template and model records, then the model files.
func (s *Service) archiveModel(ctx context.Context, path string, template, model any, files []string) error {
	if err := s.requireArtifacts(); err != nil {
		return err
	}
	if err := s.artifacts.WriteRecord(ctx, path, TemplateRecord, template); err != nil {
		return err
	}
	if model != nil {
		if err := s.artifacts.WriteRecord(ctx, path, ModelRecord, model); err != nil {
			return err
		}
	}
	return s.archive(ctx, path, files...)
}

// MergeDomainMutation stamps the modification time, archives the mutation
// record and its wild-type and mutant structures under pathToData, and
// stores the row.
func (s *Service) MergeDomainMutation(ctx context.Context, mut *domain.UniprotDomainMutation, pathToData string) error {
	return s.run(ctx, "merge_domain_mutation", func(ctx context.Context) error {
		mut.MutDateModified = s.clock.Now().UTC()
		if err := s.archiveMutation(ctx, pathToData, mut.Mutation, mut.MutationMetrics, mut); err != nil {
			return err
		}
		return s.mergeRows(ctx, *mut)
	})
}

// MergeDomainPairMutation is MergeDomainMutation for a domain-pair mutation.
func (s *Service) MergeDomainPairMutation(ctx context.Context, mut *domain.UniprotDomainPairMutation, pathToData string) error {
	return s.run(ctx, "merge_domain_pair_mutation", func(ctx context.Context) error {
		mut.MutDateModified = s.clock.Now().UTC()
		if err := s.archiveMutation(ctx, pathToData, mut.Mutation, mut.MutationMetrics, mut); err != nil {
			return err
		}
		return s.mergeRows(ctx, *mut)
	})
}

func (s *Service) archiveMutation(ctx context.Context, path, mutation string, metrics domain.MutationMetrics, record any) error {
	if path == "" || metrics.ModelFilenameWt == "" {
		return nil
	}
	if err := s.requireArtifacts(); err != nil {
		return err
	}
	dir := MutationDir(metrics.ModelFilenameWt, mutation)
	if err := s.artifacts.WriteRecord(ctx, pathpkg.Join(path, dir), MutationRecord, record); err != nil {
		return err
	}
	if metrics.ModelFilenameMut == "" {
		return nil
	}
	return s.archive(ctx, path, metrics.ModelFilenameWt, metrics.ModelFilenameMut)
}

// MutationDir is the directory, relative to path_to_data, holding the
// record of a mutation: the first component of its wild-type structure path,
// or the mutation itself when the structure sits at the top level.
func MutationDir(modelFilenameWt, mutation string) string {
	if i := strings.Index(modelFilenameWt, "/"); i > 0 {
		return modelFilenameWt[:i+1]
	}
	return mutation + "/"
}

func (s *Service) archive(ctx context.Context, prefix string, names ...string) error {
	if err := s.requireArtifacts(); err != nil {
		return err
	}
	for _, name := range names {
		if err := s.artifacts.Archive(ctx, prefix, name); err != nil {
			return err
		}
	}
	return nil
}
