// Package alignment reads the pairwise and multiple sequence alignments that
// the alignment tool stores next to each homology model.
package alignment

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Record is one aligned, gapped sequence.
type Record struct {
	ID       string
	Sequence string
}

// Alignment is an ordered set of equal-length records.
type Alignment struct {
	Records []Record
}

// Len returns the number of alignment columns.
func (a Alignment) Len() int {
	if len(a.Records) == 0 {
		return 0
	}
	return len(a.Records[0].Sequence)
}

// Get returns the record with the given id.
func (a Alignment) Get(id string) (Record, bool) {
	for _, r := range a.Records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// ReadClustal parses a Clustal (.aln) alignment. The optional header line,
// blank lines and conservation lines are skipped; sequence blocks are
// concatenated per id in order of first appearance.
func ReadClustal(r io.Reader) (Alignment, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	index := map[string]int{}
	var parts []*strings.Builder
	var ids []string
	lineNo := 0
	seenHeader := false
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !seenHeader && len(ids) == 0 && isHeader(line) {
			seenHeader = true
			continue
		}
		// conservation lines are indented past the id column
		if line[0] == ' ' || line[0] == '\t' {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields) > 3 {
			return Alignment{}, fmt.Errorf("clustal line %d: expected id and sequence, got %q", lineNo, line)
		}
		if len(fields) == 3 {
			if _, err := strconv.Atoi(fields[2]); err != nil {
				return Alignment{}, fmt.Errorf("clustal line %d: bad residue count %q", lineNo, fields[2])
			}
		}
		i, ok := index[fields[0]]
		if !ok {
			i = len(ids)
			index[fields[0]] = i
			ids = append(ids, fields[0])
			parts = append(parts, &strings.Builder{})
		}
		parts[i].WriteString(fields[1])
	}
	if err := sc.Err(); err != nil {
		return Alignment{}, fmt.Errorf("read clustal: %w", err)
	}
	if len(ids) == 0 {
		return Alignment{}, fmt.Errorf("clustal: no sequences")
	}
	aln := Alignment{Records: make([]Record, len(ids))}
	for i, id := range ids {
		aln.Records[i] = Record{ID: id, Sequence: parts[i].String()}
		if len(aln.Records[i].Sequence) != len(aln.Records[0].Sequence) {
			return Alignment{}, fmt.Errorf("clustal: sequence %q has length %d, but %q has length %d",
				id, len(aln.Records[i].Sequence), ids[0], len(aln.Records[0].Sequence))
		}
	}
	return aln, nil
}

func isHeader(line string) bool {
	for _, p := range []string{"CLUSTAL", "MUSCLE", "PROBCONS"} {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
