package domain

import (
	"fmt"
	"strings"
)

// ErrNotFound is returned when a lookup by natural key finds no row.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// MissingParentError reports a write that would break the
// template → model → mutation hierarchy.
type MissingParentError struct {
	Entity EntityType
	Parent EntityType
	ID     string
}

func (e MissingParentError) Error() string {
	return fmt.Sprintf("%s %s requires an existing %s", e.Entity, e.ID, e.Parent)
}

// TcoffeeError is raised when the T-Coffee aligner fails on an input file.
type TcoffeeError struct {
	Message     string
	Output      string
	AlignInFile string
}

func (e TcoffeeError) Error() string {
	return fmt.Sprintf("tcoffee error for file: %s, with error message: %s", e.AlignInFile, firstNonEmpty(e.Message, e.Output))
}

// TcoffeeBlastError is raised when the BLAST stage of T-Coffee fails.
type TcoffeeBlastError struct {
	Message     string
	Output      string
	AlignInFile string
}

func (e TcoffeeBlastError) Error() string {
	return fmt.Sprintf("tcoffee blast error for file: %s, with error message: %s", e.AlignInFile, firstNonEmpty(e.Message, e.Output))
}

// TcoffeePDBIDError is raised when T-Coffee cannot resolve a PDB identifier.
type TcoffeePDBIDError struct {
	Message     string
	Output      string
	AlignInFile string
}

func (e TcoffeePDBIDError) Error() string {
	return fmt.Sprintf("tcoffee pdbid error for file: %s, with error message: %s", e.AlignInFile, firstNonEmpty(e.Message, e.Output))
}

// ProveanError wraps the output of a failed Provean run.
type ProveanError struct {
	Output string
}

func (e ProveanError) Error() string {
	return "provean exited with an error:\n " + e.Output
}

// PDBError reports a malformed or unreadable PDB structure.
type PDBError struct {
	Reason string
}

func (e PDBError) Error() string { return "pdb error: " + e.Reason }

// EmptyPDBSequenceError is raised when a PDB chain yields no residues.
type EmptyPDBSequenceError struct {
	PDBID    string
	PDBChain string
}

func (e EmptyPDBSequenceError) Error() string {
	return fmt.Sprintf("empty pdb sequence file for pdb: %s, chain: %s", e.PDBID, e.PDBChain)
}

// ModellerError is raised when Modeller fails to build a model.
type ModellerError struct {
	Reason string
}

func (e ModellerError) Error() string { return "modeller error: " + e.Reason }

// FoldXError is raised when FoldX does not report a successful run.
type FoldXError struct {
	Reason string
}

func (e FoldXError) Error() string { return "foldx error: " + e.Reason }

// DataError reports an input file that could not be interpreted.
type DataError struct {
	InputFile string
}

func (e DataError) Error() string { return "unusable input file: " + e.InputFile }

// TemplateCoreError is raised when no usable core template can be selected.
type TemplateCoreError struct {
	Reason string
}

func (e TemplateCoreError) Error() string { return "template core error: " + e.Reason }

// TemplateInterfaceError is raised when no usable interface template can be selected.
type TemplateInterfaceError struct {
	Reason string
}

func (e TemplateInterfaceError) Error() string { return "template interface error: " + e.Reason }

// PDBChainError is raised when the requested chains are absent from a structure.
type PDBChainError struct {
	PDBCode string
	Chains  []string
}

func (e PDBChainError) Error() string {
	return fmt.Sprintf("pdb chain error in pdb: %s and chain: %s", e.PDBCode, strings.Join(e.Chains, ","))
}

// NoStructuralTemplatesError is raised when a protein has no structural template.
type NoStructuralTemplatesError struct {
	Reason string
}

func (e NoStructuralTemplatesError) Error() string { return "no structural templates: " + e.Reason }

// NoSequenceFoundError is raised when a sequence cannot be located.
type NoSequenceFoundError struct {
	Reason string
}

func (e NoSequenceFoundError) Error() string { return "no sequence found: " + e.Reason }

// ProteinDefinitionError reports an inconsistent protein or domain definition.
type ProteinDefinitionError struct {
	Reason string
}

func (e ProteinDefinitionError) Error() string { return "protein definition error: " + e.Reason }

// NoTemplatesFoundError is raised when the template search returns nothing.
type NoTemplatesFoundError struct {
	Reason string
}

func (e NoTemplatesFoundError) Error() string { return "no templates found: " + e.Reason }

// NoPrecalculatedAlignmentFoundError is raised when an alignment is in
// neither the temporary nor the archive tier.
type NoPrecalculatedAlignmentFoundError struct {
	SavePath          string
	AlignmentFilename string
}

func (e NoPrecalculatedAlignmentFoundError) Error() string {
	return fmt.Sprintf("no precalculated alignment %s under %s", e.AlignmentFilename, e.SavePath)
}

// MutationOutsideDomainError is raised when a mutation falls outside the domain boundaries.
type MutationOutsideDomainError struct {
	UniprotID string
	PfamName  string
	DomainDef string
	Mutation  string
}

func (e MutationOutsideDomainError) Error() string {
	return fmt.Sprintf("mutation %s in uniprot %s falls outside pfam domain %s with domain defs %s",
		e.Mutation, e.UniprotID, e.PfamName, e.DomainDef)
}

// MutationOutsideInterfaceError is raised when a mutation is not at the
// interface between the two domains of a pair.
type MutationOutsideInterfaceError struct {
	UniprotID1 string
	UniprotID2 string
	PfamName   string
	Mutation   string
}

func (e MutationOutsideInterfaceError) Error() string {
	return fmt.Sprintf("mutation %s in uniprot %s and pfam domain %s is not at the interface with %s",
		e.Mutation, e.UniprotID1, e.PfamName, e.UniprotID2)
}

// PopsError wraps a failed solvent accessibility calculation.
type PopsError struct {
	Err    error
	PDB    string
	Chains []string
}

func (e PopsError) Error() string {
	return fmt.Sprintf("pops failed for pdb %s chains %s: %v", e.PDB, strings.Join(e.Chains, ","), e.Err)
}

func (e PopsError) Unwrap() error { return e.Err }

// NoPDBFoundError is raised when a structure file is missing.
type NoPDBFoundError struct {
	Filename string
}

func (e NoPDBFoundError) Error() string {
	return fmt.Sprintf("pdb with filename %s not found", e.Filename)
}

// NoDomainFoundError is raised when a structure file contains no domain.
type NoDomainFoundError struct {
	Filename string
}

func (e NoDomainFoundError) Error() string {
	return fmt.Sprintf("no domain found in pdb with filename %s", e.Filename)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
