package core

import (
	"context"
	"errors"
	"path"
	"strings"

	"elaspicdb/pkg/domain"
)

// LoadStats counts the rows written by a bulk load.
type LoadStats struct {
	Merged  map[domain.EntityType]int
	Skipped int
}

func newLoadStats() LoadStats {
	return LoadStats{Merged: make(map[domain.EntityType]int)}
}

// archiveRecord maps a record file name and key depth onto an entity type.
// Domain records sit directly in a domain's path_to_data (five directories),
// pair records two directories deeper; mutation records one level below
// their path_to_data.
type archiveRecord struct {
	name   string
	depth  int
	entity domain.EntityType
	decode func() any
}

// archiveRecords is ordered so parents are merged before their children.
var archiveRecords = []archiveRecord{
	{TemplateRecord, 6, domain.EntityUniprotDomainTemplate, func() any { return &domain.UniprotDomainTemplate{} }},
	{ModelRecord, 6, domain.EntityUniprotDomainModel, func() any { return &domain.UniprotDomainModel{} }},
	{MutationRecord, 7, domain.EntityUniprotDomainMutation, func() any { return &domain.UniprotDomainMutation{} }},
	{TemplateRecord, 8, domain.EntityUniprotDomainPairTemplate, func() any { return &domain.UniprotDomainPairTemplate{} }},
	{ModelRecord, 8, domain.EntityUniprotDomainPairModel, func() any { return &domain.UniprotDomainPairModel{} }},
	{MutationRecord, 9, domain.EntityUniprotDomainPairMutation, func() any { return &domain.UniprotDomainPairMutation{} }},
}

// LoadFromArchive rebuilds the template, model and mutation tables from the
// JSON records stored in the archive. Records that cannot be decoded or
// whose parent row is missing are skipped.
func (s *Service) LoadFromArchive(ctx context.Context) (LoadStats, error) {
	stats := newLoadStats()
	err := s.run(ctx, "load_from_archive", func(ctx context.Context) error {
		if err := s.requireArtifacts(); err != nil {
			return err
		}
		keys, err := s.artifacts.List(ctx, "")
		if err != nil {
			return err
		}
		buckets := make([][]string, len(archiveRecords))
		for _, key := range keys {
			if i := classifyRecord(key); i >= 0 {
				buckets[i] = append(buckets[i], key)
			}
		}
		for i, rec := range archiveRecords {
			for _, key := range buckets[i] {
				if err := ctx.Err(); err != nil {
					return err
				}
				row := rec.decode()
				if err := s.artifacts.ReadRecord(ctx, key, row); err != nil {
					s.logger.Debug("error merging record, probably from an older version of the database, skipping", "key", key, "error", err)
					stats.Skipped++
					continue
				}
				err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
					return upsertRow(tx, row)
				})
				var missing domain.MissingParentError
				if errors.As(err, &missing) {
					s.logger.Warn("skipping record without parent", "key", key, "error", err)
					stats.Skipped++
					continue
				}
				if err != nil {
					return err
				}
				stats.Merged[rec.entity]++
				s.logger.Debug("merged record", "key", key)
			}
			s.logger.Debug("committed records", "entity", rec.entity, "count", stats.Merged[rec.entity])
		}
		return nil
	})
	return stats, err
}

func classifyRecord(key string) int {
	name := path.Base(key)
	depth := len(strings.Split(strings.Trim(key, "/"), "/"))
	for i, rec := range archiveRecords {
		if rec.name == name && rec.depth == depth {
			return i
		}
	}
	return -1
}
