package core

import (
	"context"
	"fmt"
	"io"
	"os"

	"elaspicdb/internal/alignment"
	"elaspicdb/internal/artifact"
	"elaspicdb/pkg/domain"
)

// GetDomainAlignment reads the precalculated alignment of a domain model,
// preferring the temporary tier over the archive.
func (s *Service) GetDomainAlignment(ctx context.Context, model domain.UniprotDomainModel, pathToData string) (alignment.Alignment, error) {
	var out alignment.Alignment
	err := s.run(ctx, "get_domain_alignment", func(ctx context.Context) error {
		alns, err := s.readAlignments(ctx, pathToData, model.AlignmentFilename)
		if err != nil {
			return err
		}
		out = alns[0]
		return nil
	})
	return out, err
}

// GetDomainPairAlignment reads both alignments of a domain-pair model. The
// two files are read from the same tier: the temporary one when it holds
// both, the archive otherwise.
func (s *Service) GetDomainPairAlignment(ctx context.Context, model domain.UniprotDomainPairModel, pathToData string) (alignment.Alignment, alignment.Alignment, error) {
	var first, second alignment.Alignment
	err := s.run(ctx, "get_domain_pair_alignment", func(ctx context.Context) error {
		alns, err := s.readAlignments(ctx, pathToData, model.AlignmentFilename1, model.AlignmentFilename2)
		if err != nil {
			return err
		}
		first, second = alns[0], alns[1]
		return nil
	})
	return first, second, err
}

func (s *Service) readAlignments(ctx context.Context, prefix string, names ...string) ([]alignment.Alignment, error) {
	if err := s.requireArtifacts(); err != nil {
		return nil, err
	}
	open := s.openArchived
	if s.allInTemp(prefix, names) {
		open = s.openTemp
	} else {
		for _, name := range names {
			ok, err := s.artifacts.InArchive(ctx, prefix, name)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, domain.NoPrecalculatedAlignmentFoundError{SavePath: prefix, AlignmentFilename: names[0]}
			}
		}
	}
	out := make([]alignment.Alignment, 0, len(names))
	for _, name := range names {
		rc, err := open(ctx, prefix, name)
		if err != nil {
			return nil, err
		}
		aln, err := alignment.ReadClustal(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read alignment %s: %w", artifact.Key(prefix, name), err)
		}
		out = append(out, aln)
	}
	return out, nil
}

func (s *Service) allInTemp(prefix string, names []string) bool {
	for _, name := range names {
		if name == "" || !s.artifacts.InTemp(prefix, name) {
			return false
		}
	}
	return true
}

func (s *Service) openTemp(_ context.Context, prefix, name string) (io.ReadCloser, error) {
	return os.Open(s.artifacts.TempPath(prefix, name))
}

func (s *Service) openArchived(ctx context.Context, prefix, name string) (io.ReadCloser, error) {
	_, rc, err := s.artifacts.ArchiveStore().Get(ctx, artifact.Key(prefix, name))
	return rc, err
}
