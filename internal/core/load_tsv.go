package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"elaspicdb/pkg/domain"
)

// tsvNull marks a NULL cell in database dumps.
const tsvNull = `\N`

type tsvTable struct {
	file     string
	entity   domain.EntityType
	required bool
	newRow   func() any
	aliases  map[string]string
	// key is a column every header row names.
	key string
	// columns is the column order of header-less dumps; nil when the dump
	// must carry a header.
	columns []string
}

// tsvTables lists the dump files in load order.
var tsvTables = []tsvTable{
	{"domain.txt", domain.EntityDomain, true, func() any { return &domain.Domain{} },
		map[string]string{"pfam_name": "pdb_pdbfam_name"}, "cath_id",
		[]string{"cath_id", "pdb_id", "pdb_type", "pdb_resolution", "pdb_chain", "pdb_domain_def", "pfam_autopfam", "pfam_name"}},
	{"domain_contact.txt", domain.EntityDomainContact, true, func() any { return &domain.DomainContact{} }, nil, "domain_contact_id",
		[]string{"domain_contact_id", "cath_id_1", "contact_residues_1", "cath_id_2", "contact_residues_2"}},
	{"uniprot_sequence.txt", domain.EntityUniprotSequence, true, func() any { return &domain.UniprotSequence{} },
		map[string]string{"uniprot_description": "protein_name"}, "uniprot_id",
		[]string{"uniprot_id", "uniprot_name", "uniprot_description", "uniprot_sequence"}},
	{"uniprot_domain.txt", domain.EntityUniprotDomain, false, func() any { return &domain.UniprotDomain{} },
		map[string]string{"pfam_name": "pdbfam_name"}, "uniprot_domain_id", nil},
	{"uniprot_domain_pair.txt", domain.EntityUniprotDomainPair, false, func() any { return &domain.UniprotDomainPair{} }, nil, "uniprot_domain_pair_id", nil},
}

const tsvProgressEvery = 10000

// LoadFromTSV populates the base tables from tab-separated dumps in dir.
// Files normally start with a header row naming the columns; `\N` marks NULL.
// domain.txt, domain_contact.txt and uniprot_sequence.txt are required and
// may also be header-less, in which case their legacy column order applies.
// Missing path_to_data values of protein domains and pairs are derived from
// the stored sequences.
func (s *Service) LoadFromTSV(ctx context.Context, dir string) (LoadStats, error) {
	stats := newLoadStats()
	err := s.run(ctx, "load_from_tsv", func(ctx context.Context) error {
		for _, table := range tsvTables {
			path := filepath.Join(dir, table.file)
			rows, err := readTSV(path, table)
			if errors.Is(err, fs.ErrNotExist) && !table.required {
				s.logger.Debug("skipping missing table dump", "file", path)
				continue
			}
			if err != nil {
				return err
			}
			err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
				for i, row := range rows {
					if err := ctx.Err(); err != nil {
						return err
					}
					if err := s.prepareRow(tx, row); err != nil {
						return fmt.Errorf("%s row %d: %w", table.file, i+1, err)
					}
					if err := upsertRow(tx, row); err != nil {
						return fmt.Errorf("%s row %d: %w", table.file, i+1, err)
					}
					if (i+1)%tsvProgressEvery == 0 {
						s.logger.Debug("loading table", "table", table.entity, "rows", i+1)
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			stats.Merged[table.entity] += len(rows)
			s.logger.Info("finished populating table", "table", table.entity, "rows", len(rows))
		}
		return s.store.SyncSequences(ctx)
	})
	return stats, err
}

// prepareRow normalises alignment definitions and derives path_to_data.
func (s *Service) prepareRow(tx domain.Transaction, row any) error {
	switch r := row.(type) {
	case *domain.UniprotDomain:
		if r.AlignmentDef != "" {
			ranges, err := domain.DecodeDomainDefs(r.AlignmentDef)
			if err != nil {
				return err
			}
			r.AlignmentDef = domain.EncodeDomainDefs(ranges)
		}
		if r.PathToData != "" {
			return nil
		}
		seq, ok, err := tx.FindUniprotSequence(r.UniprotID)
		if err != nil || !ok {
			return err
		}
		if r.PathToData, err = domain.UniprotDomainDataPath(seq, *r); err != nil {
			s.logger.Warn("cannot derive path_to_data", "uniprot_domain_id", r.UniprotDomainID, "error", err)
		}
	case *domain.UniprotDomainPair:
		if r.PathToData != "" {
			return nil
		}
		d1, ok1, err := tx.FindUniprotDomain(r.UniprotDomainID1)
		if err != nil {
			return err
		}
		d2, ok2, err := tx.FindUniprotDomain(r.UniprotDomainID2)
		if err != nil || !ok1 || !ok2 {
			return err
		}
		seq, ok, err := tx.FindUniprotSequence(d1.UniprotID)
		if err != nil || !ok {
			return err
		}
		if r.PathToData, err = domain.UniprotDomainPairDataPath(seq, d1, d2); err != nil {
			s.logger.Warn("cannot derive path_to_data", "uniprot_domain_pair_id", r.UniprotDomainPairID, "error", err)
		}
	}
	return nil
}

func readTSV(path string, table tsvTable) ([]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.LazyQuotes = true
	first, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: missing header row", table.file)
		}
		return nil, fmt.Errorf("%s: %w", table.file, err)
	}
	header, pending, line := first, [][]string(nil), 1
	if table.columns != nil && !table.isHeader(first) {
		header, pending, line = table.columns, [][]string{first}, 0
	}
	template := table.newRow()
	fields := columnFields(reflect.TypeOf(template).Elem())
	index := make([][]int, len(header))
	for i, col := range header {
		index[i] = fields[table.column(col)]
	}

	var rows []any
	for {
		var rec []string
		if len(pending) > 0 {
			rec, pending = pending[0], pending[1:]
		} else if rec, err = r.Read(); errors.Is(err, io.EOF) {
			return rows, nil
		} else if err != nil {
			return nil, fmt.Errorf("%s: %w", table.file, err)
		}
		line++
		row := table.newRow()
		v := reflect.ValueOf(row).Elem()
		for i, raw := range rec {
			if i >= len(index) || index[i] == nil || raw == tsvNull {
				continue
			}
			if err := setColumn(v.FieldByIndex(index[i]), strings.TrimSpace(raw)); err != nil {
				return nil, fmt.Errorf("%s line %d column %s: %w", table.file, line, header[i], err)
			}
		}
		rows = append(rows, row)
	}
}

// column resolves a dump column name to the entity's column name.
func (t tsvTable) column(name string) string {
	name = strings.TrimSpace(name)
	if alias, ok := t.aliases[name]; ok {
		return alias
	}
	return name
}

func (t tsvTable) isHeader(rec []string) bool {
	for _, col := range rec {
		if t.column(col) == t.key {
			return true
		}
	}
	return false
}

// columnFields maps json column names to field index paths, descending into
// embedded structs.
func columnFields(t reflect.Type) map[string][]int {
	out := make(map[string][]int)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			for name, idx := range columnFields(f.Type) {
				out[name] = append([]int{i}, idx...)
			}
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		out[name] = []int{i}
	}
	return out
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05", "2006-01-02"}

func setColumn(f reflect.Value, raw string) error {
	switch f.Interface().(type) {
	case string:
		f.SetString(raw)
	case int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		f.SetInt(n)
	case *int64:
		if raw == "" {
			return nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			// integer columns are sometimes dumped as floats ("3.0")
			fl, ferr := strconv.ParseFloat(raw, 64)
			if ferr != nil || fl != float64(int64(fl)) {
				return err
			}
			n = int64(fl)
		}
		f.Set(reflect.ValueOf(&n))
	case *float64:
		if raw == "" {
			return nil
		}
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		f.Set(reflect.ValueOf(&x))
	case time.Time:
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, raw); err == nil {
				f.Set(reflect.ValueOf(ts.UTC()))
				return nil
			}
		}
		return fmt.Errorf("unrecognised timestamp %q", raw)
	default:
		return fmt.Errorf("unsupported column type %s", f.Type())
	}
	return nil
}
