package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorsMatchThroughWrapping(t *testing.T) {
	base := NoPrecalculatedAlignmentFoundError{SavePath: "/archive/x/", AlignmentFilename: "a.aln"}
	wrapped := fmt.Errorf("load alignment: %w", base)
	var target NoPrecalculatedAlignmentFoundError
	if !errors.As(wrapped, &target) {
		t.Fatalf("expected errors.As to find alignment error")
	}
	if target.AlignmentFilename != "a.aln" {
		t.Fatalf("unexpected filename %q", target.AlignmentFilename)
	}
	if !errors.Is(wrapped, base) {
		t.Fatalf("expected errors.Is to match comparable error value")
	}
}

func TestErrorMessagesCarryContext(t *testing.T) {
	cases := []struct {
		err  error
		want []string
	}{
		{TcoffeeError{Output: "boom", AlignInFile: "in.fasta"}, []string{"tcoffee", "in.fasta", "boom"}},
		{TcoffeeBlastError{Message: "blast", AlignInFile: "in.fasta"}, []string{"blast", "in.fasta"}},
		{TcoffeePDBIDError{Output: "x", AlignInFile: "f"}, []string{"pdbid", "f"}},
		{ProveanError{Output: "bad"}, []string{"provean", "bad"}},
		{EmptyPDBSequenceError{PDBID: "1abc", PDBChain: "A"}, []string{"1abc", "A"}},
		{PDBChainError{PDBCode: "1abc", Chains: []string{"A", "B"}}, []string{"1abc", "A,B"}},
		{MutationOutsideInterfaceError{UniprotID1: "P1", UniprotID2: "P2", PfamName: "F", Mutation: "A1C"}, []string{"P1", "P2", "A1C"}},
		{NoPDBFoundError{Filename: "x.pdb"}, []string{"x.pdb"}},
		{NoDomainFoundError{Filename: "y.pdb"}, []string{"y.pdb"}},
		{DataError{InputFile: "data.txt"}, []string{"data.txt"}},
		{ErrNotFound{Entity: EntityUniprotSequence, ID: "P1"}, []string{"uniprot_sequence", "P1"}},
		{MissingParentError{Entity: EntityUniprotDomainModel, Parent: EntityUniprotDomainTemplate, ID: "7"}, []string{"uniprot_domain_model", "uniprot_domain_template", "7"}},
	}
	for _, tc := range cases {
		msg := tc.err.Error()
		for _, w := range tc.want {
			if !strings.Contains(msg, w) {
				t.Fatalf("%T message %q missing %q", tc.err, msg, w)
			}
		}
	}
}

func TestPopsErrorUnwraps(t *testing.T) {
	cause := errors.New("pops crashed")
	err := error(PopsError{Err: cause, PDB: "1abc", Chains: []string{"A"}})
	if !errors.Is(err, cause) {
		t.Fatalf("expected PopsError to unwrap to cause")
	}
}
