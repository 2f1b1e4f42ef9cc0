// Package domain defines the persistent entities of the stability pipeline:
// structural domains and their contacts, protein sequences, and the
// template → model → mutation hierarchy computed for each protein domain or
// domain pair.
package domain

import "time"

// EntityType identifies the type of record stored in the schema.
type EntityType string

// Supported entity type identifiers used in errors and archive records.
const (
	EntityDomain                    EntityType = "domain"
	EntityDomainContact             EntityType = "domain_contact"
	EntityUniprotSequence           EntityType = "uniprot_sequence"
	EntityProvean                   EntityType = "provean"
	EntityUniprotDomain             EntityType = "uniprot_domain"
	EntityUniprotDomainPair         EntityType = "uniprot_domain_pair"
	EntityUniprotDomainTemplate     EntityType = "uniprot_domain_template"
	EntityUniprotDomainModel        EntityType = "uniprot_domain_model"
	EntityUniprotDomainMutation     EntityType = "uniprot_domain_mutation"
	EntityUniprotDomainPairTemplate EntityType = "uniprot_domain_pair_template"
	EntityUniprotDomainPairModel    EntityType = "uniprot_domain_pair_model"
	EntityUniprotDomainPairMutation EntityType = "uniprot_domain_pair_mutation"
)

// Domain is a pdbfam domain definition for one chain of a PDB structure.
type Domain struct {
	CathID        string   `json:"cath_id"`
	PDBID         string   `json:"pdb_id"`
	PDBType       string   `json:"pdb_type,omitempty"`
	PDBResolution *float64 `json:"pdb_resolution,omitempty"`
	PDBChain      string   `json:"pdb_chain"`
	PDBDomainDef  string   `json:"pdb_domain_def"`
	PDBPdbfamName string   `json:"pdb_pdbfam_name"`
	PDBPdbfamIdx  *int64   `json:"pdb_pdbfam_idx,omitempty"`
	DomainErrors  string   `json:"domain_errors,omitempty"`
}

// DomainContact records an interaction between two pdbfam domains in the PDB.
type DomainContact struct {
	DomainContactID       int64    `json:"domain_contact_id"`
	CathID1               string   `json:"cath_id_1"`
	CathID2               string   `json:"cath_id_2"`
	MinInterchainDistance *float64 `json:"min_interchain_distance,omitempty"`
	ContactVolume         *float64 `json:"contact_volume,omitempty"`
	ContactSurfaceArea    *float64 `json:"contact_surface_area,omitempty"`
	AtomCount1            *int64   `json:"atom_count_1,omitempty"`
	AtomCount2            *int64   `json:"atom_count_2,omitempty"`
	ContactResidues1      string   `json:"contact_residues_1,omitempty"`
	ContactResidues2      string   `json:"contact_residues_2,omitempty"`
	CrystalPacking        *float64 `json:"crystal_packing,omitempty"`
	DomainContactErrors   string   `json:"domain_contact_errors,omitempty"`

	Domain1 *Domain `json:"-"`
	Domain2 *Domain `json:"-"`
}

// UniprotSequence is one entry of the Swissprot/Trembl sequence database.
type UniprotSequence struct {
	DB               string `json:"db"`
	UniprotID        string `json:"uniprot_id"`
	UniprotName      string `json:"uniprot_name"`
	ProteinName      string `json:"protein_name,omitempty"`
	OrganismName     string `json:"organism_name,omitempty"`
	GeneName         string `json:"gene_name,omitempty"`
	ProteinExistence *int64 `json:"protein_existence,omitempty"`
	SequenceVersion  *int64 `json:"sequence_version,omitempty"`
	UniprotSequence  string `json:"uniprot_sequence"`

	Provean *Provean `json:"-"`
}

// Provean holds the location of the Provean supporting set computed for a sequence.
type Provean struct {
	UniprotID             string    `json:"uniprot_id"`
	ProveanSupsetFilename string    `json:"provean_supset_filename,omitempty"`
	ProveanSupsetLength   *int64    `json:"provean_supset_length,omitempty"`
	ProveanErrors         string    `json:"provean_errors,omitempty"`
	ProveanDateModified   time.Time `json:"provean_date_modified"`
}

// UniprotDomain assigns a pdbfam domain to a region of a protein sequence.
type UniprotDomain struct {
	UniprotDomainID  int64  `json:"uniprot_domain_id"`
	UniprotID        string `json:"uniprot_id"`
	PdbfamName       string `json:"pdbfam_name"`
	PdbfamIdx        int64  `json:"pdbfam_idx"`
	PfamClan         string `json:"pfam_clan,omitempty"`
	AlignmentDef     string `json:"alignment_def,omitempty"`
	PfamNames        string `json:"pfam_names,omitempty"`
	AlignmentSubdefs string `json:"alignment_subdefs,omitempty"`
	PathToData       string `json:"path_to_data,omitempty"`

	Sequence *UniprotSequence       `json:"-"`
	Template *UniprotDomainTemplate `json:"-"`
}

// UniprotDomainPair is a pair of protein domains that may interact.
type UniprotDomainPair struct {
	UniprotDomainPairID int64  `json:"uniprot_domain_pair_id"`
	UniprotDomainID1    int64  `json:"uniprot_domain_id_1"`
	UniprotDomainID2    int64  `json:"uniprot_domain_id_2"`
	Rigids              string `json:"rigids,omitempty"`
	DomainContactIDs    string `json:"domain_contact_ids,omitempty"`
	PathToData          string `json:"path_to_data,omitempty"`

	UniprotDomain1 *UniprotDomain             `json:"-"`
	UniprotDomain2 *UniprotDomain             `json:"-"`
	Template       *UniprotDomainPairTemplate `json:"-"`
}

// UniprotDomainTemplate is the structural template chosen for a protein domain.
type UniprotDomainTemplate struct {
	UniprotDomainID   int64     `json:"uniprot_domain_id"`
	TemplateErrors    string    `json:"template_errors,omitempty"`
	CathID            string    `json:"cath_id"`
	DomainStart       *int64    `json:"domain_start,omitempty"`
	DomainEnd         *int64    `json:"domain_end,omitempty"`
	DomainDef         string    `json:"domain_def,omitempty"`
	AlignmentIdentity *float64  `json:"alignment_identity,omitempty"`
	AlignmentCoverage *float64  `json:"alignment_coverage,omitempty"`
	AlignmentScore    *float64  `json:"alignment_score,omitempty"`
	TDateModified     time.Time `json:"t_date_modified"`

	Domain *Domain             `json:"-"`
	Model  *UniprotDomainModel `json:"-"`
}

// UniprotDomainModel is the homology model built from a domain template.
type UniprotDomainModel struct {
	UniprotDomainID   int64     `json:"uniprot_domain_id"`
	ModelErrors       string    `json:"model_errors,omitempty"`
	AlignmentFilename string    `json:"alignment_filename,omitempty"`
	ModelFilename     string    `json:"model_filename,omitempty"`
	Chain             string    `json:"chain,omitempty"`
	NormDope          *float64  `json:"norm_dope,omitempty"`
	SasaScore         string    `json:"sasa_score,omitempty"`
	MDateModified     time.Time `json:"m_date_modified"`
}

// Artifacts lists the files the model owns, relative to the domain's path_to_data.
func (m UniprotDomainModel) Artifacts() []string {
	return nonEmpty(m.AlignmentFilename, m.ModelFilename)
}

// MutationMetrics holds the stability metrics shared by domain and domain-pair mutations.
type MutationMetrics struct {
	MutationErrors          string   `json:"mutation_errors,omitempty"`
	ModelFilenameWt         string   `json:"model_filename_wt,omitempty"`
	ModelFilenameMut        string   `json:"model_filename_mut,omitempty"`
	ChainModeller           string   `json:"chain_modeller,omitempty"`
	MutationModeller        string   `json:"mutation_modeller,omitempty"`
	StabilityEnergyWt       string   `json:"stability_energy_wt,omitempty"`
	StabilityEnergyMut      string   `json:"stability_energy_mut,omitempty"`
	PhyschemWt              string   `json:"physchem_wt,omitempty"`
	PhyschemWtOwnchain      string   `json:"physchem_wt_ownchain,omitempty"`
	PhyschemMut             string   `json:"physchem_mut,omitempty"`
	PhyschemMutOwnchain     string   `json:"physchem_mut_ownchain,omitempty"`
	MatrixScore             *float64 `json:"matrix_score,omitempty"`
	SecondaryStructureWt    string   `json:"secondary_structure_wt,omitempty"`
	SolventAccessibilityWt  *float64 `json:"solvent_accessibility_wt,omitempty"`
	SecondaryStructureMut   string   `json:"secondary_structure_mut,omitempty"`
	SolventAccessibilityMut *float64 `json:"solvent_accessibility_mut,omitempty"`
	ProveanScore            *float64 `json:"provean_score,omitempty"`
	DDG                     *float64 `json:"ddg,omitempty"`
}

// Structures lists the wild-type and mutant structures, relative to path_to_data.
func (m MutationMetrics) Structures() []string {
	return nonEmpty(m.ModelFilenameWt, m.ModelFilenameMut)
}

// UniprotDomainMutation is the result of evaluating one substitution on a domain model.
type UniprotDomainMutation struct {
	UniprotID       string `json:"uniprot_id"`
	UniprotDomainID int64  `json:"uniprot_domain_id"`
	Mutation        string `json:"mutation"`
	MutationMetrics
	MutDateModified time.Time `json:"mut_date_modified"`
}

// UniprotDomainPairTemplate is the structural template chosen for a domain pair.
type UniprotDomainPairTemplate struct {
	UniprotDomainPairID int64     `json:"uniprot_domain_pair_id"`
	DomainContactID     int64     `json:"domain_contact_id"`
	CathID1             string    `json:"cath_id_1"`
	CathID2             string    `json:"cath_id_2"`
	Identical1          *float64  `json:"identical_1,omitempty"`
	Conserved1          *float64  `json:"conserved_1,omitempty"`
	Coverage1           *float64  `json:"coverage_1,omitempty"`
	Score1              *float64  `json:"score_1,omitempty"`
	IdenticalIf1        *float64  `json:"identical_if_1,omitempty"`
	ConservedIf1        *float64  `json:"conserved_if_1,omitempty"`
	CoverageIf1         *float64  `json:"coverage_if_1,omitempty"`
	ScoreIf1            *float64  `json:"score_if_1,omitempty"`
	Identical2          *float64  `json:"identical_2,omitempty"`
	Conserved2          *float64  `json:"conserved_2,omitempty"`
	Coverage2           *float64  `json:"coverage_2,omitempty"`
	Score2              *float64  `json:"score_2,omitempty"`
	IdenticalIf2        *float64  `json:"identical_if_2,omitempty"`
	ConservedIf2        *float64  `json:"conserved_if_2,omitempty"`
	CoverageIf2         *float64  `json:"coverage_if_2,omitempty"`
	ScoreIf2            *float64  `json:"score_if_2,omitempty"`
	ScoreTotal          *float64  `json:"score_total,omitempty"`
	ScoreIfTotal        *float64  `json:"score_if_total,omitempty"`
	ScoreOverall        *float64  `json:"score_overall,omitempty"`
	TDateModified       time.Time `json:"t_date_modified"`
	TemplateErrors      string    `json:"template_errors,omitempty"`

	DomainContact *DomainContact          `json:"-"`
	Domain1       *Domain                 `json:"-"`
	Domain2       *Domain                 `json:"-"`
	Model         *UniprotDomainPairModel `json:"-"`
}

// UniprotDomainPairModel is the homology model of a domain-domain complex.
type UniprotDomainPairModel struct {
	UniprotDomainPairID      int64     `json:"uniprot_domain_pair_id"`
	ModelErrors              string    `json:"model_errors,omitempty"`
	AlignmentFilename1       string    `json:"alignment_filename_1,omitempty"`
	AlignmentFilename2       string    `json:"alignment_filename_2,omitempty"`
	ModelFilename            string    `json:"model_filename,omitempty"`
	Chain1                   string    `json:"chain_1,omitempty"`
	Chain2                   string    `json:"chain_2,omitempty"`
	NormDope                 *float64  `json:"norm_dope,omitempty"`
	InterfaceAreaHydrophobic *float64  `json:"interface_area_hydrophobic,omitempty"`
	InterfaceAreaHydrophilic *float64  `json:"interface_area_hydrophilic,omitempty"`
	InterfaceAreaTotal       *float64  `json:"interface_area_total,omitempty"`
	InterfaceDG              *float64  `json:"interface_dg,omitempty"`
	InteractingAA1           string    `json:"interacting_aa_1,omitempty"`
	InteractingAA2           string    `json:"interacting_aa_2,omitempty"`
	MDateModified            time.Time `json:"m_date_modified"`
}

// Artifacts lists the files the model owns, relative to the pair's path_to_data.
func (m UniprotDomainPairModel) Artifacts() []string {
	return nonEmpty(m.AlignmentFilename1, m.AlignmentFilename2, m.ModelFilename)
}

// UniprotDomainPairMutation is the result of evaluating one substitution on a
// domain-pair model, including interface energies.
type UniprotDomainPairMutation struct {
	UniprotID           string `json:"uniprot_id"`
	UniprotDomainPairID int64  `json:"uniprot_domain_pair_id"`
	Mutation            string `json:"mutation"`
	MutationMetrics
	AnalyseComplexEnergyWt  string    `json:"analyse_complex_energy_wt,omitempty"`
	AnalyseComplexEnergyMut string    `json:"analyse_complex_energy_mut,omitempty"`
	ContactDistanceWt       *float64  `json:"contact_distance_wt,omitempty"`
	ContactDistanceMut      *float64  `json:"contact_distance_mut,omitempty"`
	MutDateModified         time.Time `json:"mut_date_modified"`
}

func nonEmpty(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}
