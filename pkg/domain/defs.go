package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	domainBoundaryPattern = regexp.MustCompile(`^(-?\d+)[A-Z]?-(-?\d+)[A-Z]?$`)
	mutationPattern       = regexp.MustCompile(`^([A-Z])(-?\d+)([A-Z])$`)
)

// SplitDomain parses a pdb domain boundary such as "-150-200" or "3B-40" into
// its signed start and end residue numbers. A single trailing insertion code
// on either boundary is discarded.
func SplitDomain(def string) (int, int, error) {
	m := domainBoundaryPattern.FindStringSubmatch(strings.TrimSpace(def))
	if m == nil {
		return 0, 0, fmt.Errorf("malformed domain boundary %q", def)
	}
	start, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, fmt.Errorf("domain boundary %q: %w", def, err)
	}
	end, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, fmt.Errorf("domain boundary %q: %w", def, err)
	}
	return start, end, nil
}

// SplitDomainSemicolon splits "1:10,20B:30" into [["1" "10"] ["20B" "30"]],
// keeping insertion codes intact.
func SplitDomainSemicolon(defs string) [][]string {
	if strings.TrimSpace(defs) == "" {
		return nil
	}
	parts := strings.Split(defs, ",")
	out := make([][]string, 0, len(parts))
	for _, part := range parts {
		bounds := strings.Split(part, ":")
		for i := range bounds {
			bounds[i] = strings.TrimSpace(bounds[i])
		}
		out = append(out, bounds)
	}
	return out
}

// SplitInterfaceAA parses a comma separated list of interface residue
// positions. Empty input and the literal "NULL" yield no positions.
func SplitInterfaceAA(list string) ([]int, error) {
	list = strings.TrimSpace(list)
	if list == "" || list == "NULL" {
		return nil, nil
	}
	list = strings.TrimSuffix(list, ",")
	parts := strings.Split(list, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("interface residue %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// DomainRange is an inclusive residue interval on a protein sequence.
type DomainRange struct {
	Start int
	End   int
}

// Contains reports whether pos falls inside the range.
func (r DomainRange) Contains(pos int) bool {
	return pos >= r.Start && pos <= r.End
}

// DecodeDomainDefs parses an alignment definition such as "1:100,120:200".
func DecodeDomainDefs(defs string) ([]DomainRange, error) {
	var out []DomainRange
	for _, pair := range SplitDomainSemicolon(defs) {
		if len(pair) != 2 {
			return nil, fmt.Errorf("malformed domain definition %q", defs)
		}
		start, err := strconv.Atoi(strings.TrimRight(pair[0], "ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
		if err != nil {
			return nil, fmt.Errorf("domain definition %q: %w", defs, err)
		}
		end, err := strconv.Atoi(strings.TrimRight(pair[1], "ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
		if err != nil {
			return nil, fmt.Errorf("domain definition %q: %w", defs, err)
		}
		if end < start {
			return nil, fmt.Errorf("domain definition %q: end %d before start %d", defs, end, start)
		}
		out = append(out, DomainRange{Start: start, End: end})
	}
	return out, nil
}

// EncodeDomainDefs renders ranges back into the "start:end,start:end" form.
func EncodeDomainDefs(ranges []DomainRange) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = strconv.Itoa(r.Start) + ":" + strconv.Itoa(r.End)
	}
	return strings.Join(parts, ",")
}

// MatchPfamName reports whether a stored pdbfam name matches a queried Pfam
// family, ignoring case. Without subdomains only an exact match counts. With
// subdomains the query also matches as a numbered subdomain (X_1) or as a
// member of a "+"-joined superdomain (X+Y, Y+X, Y+X+Z, Y+X_2).
func MatchPfamName(name, query string, subdomains bool) bool {
	if strings.EqualFold(name, query) {
		return true
	}
	if !subdomains || query == "" {
		return false
	}
	prefix := query + "_"
	for _, member := range strings.Split(name, "+") {
		if strings.EqualFold(member, query) {
			return true
		}
		if len(member) >= len(prefix) && strings.EqualFold(member[:len(prefix)], prefix) {
			return true
		}
	}
	return false
}

// UniprotBasePath returns the per-protein directory shared by all of its
// domains, e.g. "human/P04/63/P04637/".
func UniprotBasePath(seq UniprotSequence) (string, error) {
	id := seq.UniprotID
	if len(id) < 5 {
		return "", fmt.Errorf("uniprot id %q too short for a data path", id)
	}
	idx := strings.LastIndex(seq.UniprotName, "_")
	if idx < 0 || idx == len(seq.UniprotName)-1 {
		return "", fmt.Errorf("uniprot name %q has no organism suffix", seq.UniprotName)
	}
	organism := strings.ToLower(seq.UniprotName[idx+1:])
	return organism + "/" + id[0:3] + "/" + id[3:5] + "/" + id + "/", nil
}

// UniprotDomainDataPath returns the path_to_data of a protein domain.
func UniprotDomainDataPath(seq UniprotSequence, d UniprotDomain) (string, error) {
	base, err := UniprotBasePath(seq)
	if err != nil {
		return "", err
	}
	return base + domainDirName(d), nil
}

// UniprotDomainPairDataPath returns the path_to_data of a domain pair, nested
// below the first domain's directory.
func UniprotDomainPairDataPath(seq1 UniprotSequence, d1 UniprotDomain, d2 UniprotDomain) (string, error) {
	path1, err := UniprotDomainDataPath(seq1, d1)
	if err != nil {
		return "", err
	}
	if d2.UniprotID == "" {
		return "", fmt.Errorf("uniprot domain %d has no uniprot id", d2.UniprotDomainID)
	}
	return path1 + domainDirName(d2) + d2.UniprotID + "/", nil
}

func domainDirName(d UniprotDomain) string {
	return d.PdbfamName + "*" + strings.ReplaceAll(d.AlignmentDef, ":", "-") + "/"
}

// Mutation is a single amino acid substitution such as "A123C".
type Mutation struct {
	WildType byte
	Position int
	Mutant   byte
}

func (m Mutation) String() string {
	return string(m.WildType) + strconv.Itoa(m.Position) + string(m.Mutant)
}

// ParseMutation decodes the "<wt><position><mut>" notation.
func ParseMutation(s string) (Mutation, error) {
	m := mutationPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Mutation{}, fmt.Errorf("malformed mutation %q", s)
	}
	pos, err := strconv.Atoi(m[2])
	if err != nil {
		return Mutation{}, fmt.Errorf("mutation %q: %w", s, err)
	}
	return Mutation{WildType: m[1][0], Position: pos, Mutant: m[3][0]}, nil
}

// CheckMutationInDomain returns a MutationOutsideDomainError unless the
// mutated position lies within the domain's alignment definition.
func CheckMutationInDomain(d UniprotDomain, mutation string) error {
	mut, err := ParseMutation(mutation)
	if err != nil {
		return err
	}
	ranges, err := DecodeDomainDefs(d.AlignmentDef)
	if err != nil {
		return err
	}
	for _, r := range ranges {
		if r.Contains(mut.Position) {
			return nil
		}
	}
	return MutationOutsideDomainError{
		UniprotID: d.UniprotID,
		PfamName:  d.PdbfamName,
		DomainDef: d.AlignmentDef,
		Mutation:  mutation,
	}
}

// CheckMutationAtInterface returns a MutationOutsideInterfaceError unless the
// mutated position is one of the interacting residues of the queried side of
// the pair model. side selects interacting_aa_1 (1) or interacting_aa_2 (2).
func CheckMutationAtInterface(pair UniprotDomainPair, side int, mutation string) error {
	mut, err := ParseMutation(mutation)
	if err != nil {
		return err
	}
	if pair.UniprotDomain1 == nil || pair.UniprotDomain2 == nil {
		return fmt.Errorf("uniprot domain pair %d is not hydrated", pair.UniprotDomainPairID)
	}
	self, other := pair.UniprotDomain1, pair.UniprotDomain2
	var interacting string
	if pair.Template != nil && pair.Template.Model != nil {
		interacting = pair.Template.Model.InteractingAA1
		if side == 2 {
			interacting = pair.Template.Model.InteractingAA2
		}
	}
	if side == 2 {
		self, other = other, self
	}
	positions, err := SplitInterfaceAA(interacting)
	if err != nil {
		return err
	}
	for _, p := range positions {
		if p == mut.Position {
			return nil
		}
	}
	return MutationOutsideInterfaceError{
		UniprotID1: self.UniprotID,
		UniprotID2: other.UniprotID,
		PfamName:   self.PdbfamName,
		Mutation:   mutation,
	}
}
