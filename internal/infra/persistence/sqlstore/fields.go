package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"elaspicdb/pkg/domain"
)

// field ties a column to the value bound on write and the destination
// scanned on read. Lists of fields are built from an entity pointer, so the
// same list serves both directions.
type field struct {
	col  string
	val  any
	dest any
}

// key binds a NOT NULL text column verbatim.
func key(col string, p *string) field { return field{col: col, val: *p, dest: textDest{p}} }

// text binds an optional text column, writing empty strings as NULL.
func text(col string, p *string) field {
	var v any
	if *p != "" {
		v = *p
	}
	return field{col: col, val: v, dest: textDest{p}}
}

func integer(col string, p *int64) field { return field{col: col, val: *p, dest: p} }

func optInt(col string, p **int64) field {
	var v any
	if *p != nil {
		v = **p
	}
	return field{col: col, val: v, dest: intDest{p}}
}

func optFloat(col string, p **float64) field {
	var v any
	if *p != nil {
		v = **p
	}
	return field{col: col, val: v, dest: floatDest{p}}
}

// stamp binds a NOT NULL timestamp; unset times are written as the current time.
func stamp(col string, p *time.Time) field {
	t := *p
	if t.IsZero() {
		t = time.Now()
	}
	return field{col: col, val: t.UTC(), dest: timeDest{p}}
}

type textDest struct{ p *string }

func (d textDest) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		*d.p = ""
	case string:
		*d.p = x
	case []byte:
		*d.p = string(x)
	default:
		*d.p = fmt.Sprint(x)
	}
	return nil
}

type intDest struct{ p **int64 }

func (d intDest) Scan(v any) error {
	var n sql.NullInt64
	if err := n.Scan(v); err != nil {
		return err
	}
	if !n.Valid {
		*d.p = nil
		return nil
	}
	x := n.Int64
	*d.p = &x
	return nil
}

type floatDest struct{ p **float64 }

func (d floatDest) Scan(v any) error {
	var n sql.NullFloat64
	if err := n.Scan(v); err != nil {
		return err
	}
	if !n.Valid {
		*d.p = nil
		return nil
	}
	x := n.Float64
	*d.p = &x
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

type timeDest struct{ p *time.Time }

func (d timeDest) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		*d.p = time.Time{}
		return nil
	case time.Time:
		*d.p = x.UTC()
		return nil
	case []byte:
		return d.parse(string(x))
	case string:
		return d.parse(x)
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", v)
	}
}

func (d timeDest) parse(s string) error {
	s = strings.TrimSpace(s)
	// time.Time.String output may carry a monotonic clock suffix.
	if i := strings.Index(s, " m="); i >= 0 {
		s = s[:i]
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*d.p = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("scan timestamp: unrecognised value %q", s)
}

func columns(fs []field) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.col
	}
	return out
}

func values(fs []field) []any {
	out := make([]any, len(fs))
	for i, f := range fs {
		out[i] = f.val
	}
	return out
}

func dests(fs []field) []any {
	out := make([]any, len(fs))
	for i, f := range fs {
		out[i] = f.dest
	}
	return out
}

func without(fs []field, col string) []field {
	out := make([]field, 0, len(fs))
	for _, f := range fs {
		if f.col != col {
			out = append(out, f)
		}
	}
	return out
}

// selectList renders the column list of fs, qualified by alias when set.
func selectList(alias string, fs []field) string {
	cols := columns(fs)
	if alias != "" {
		for i, c := range cols {
			cols[i] = alias + "." + c
		}
	}
	return strings.Join(cols, ", ")
}

// --- per-entity column sets ---

func domainFields(d *domain.Domain) []field {
	return []field{
		key("cath_id", &d.CathID),
		key("pdb_id", &d.PDBID),
		text("pdb_type", &d.PDBType),
		optFloat("pdb_resolution", &d.PDBResolution),
		key("pdb_chain", &d.PDBChain),
		key("pdb_domain_def", &d.PDBDomainDef),
		key("pdb_pdbfam_name", &d.PDBPdbfamName),
		optInt("pdb_pdbfam_idx", &d.PDBPdbfamIdx),
		text("domain_errors", &d.DomainErrors),
	}
}

func domainContactFields(c *domain.DomainContact) []field {
	return []field{
		integer("domain_contact_id", &c.DomainContactID),
		key("cath_id_1", &c.CathID1),
		key("cath_id_2", &c.CathID2),
		optFloat("min_interchain_distance", &c.MinInterchainDistance),
		optFloat("contact_volume", &c.ContactVolume),
		optFloat("contact_surface_area", &c.ContactSurfaceArea),
		optInt("atom_count_1", &c.AtomCount1),
		optInt("atom_count_2", &c.AtomCount2),
		text("contact_residues_1", &c.ContactResidues1),
		text("contact_residues_2", &c.ContactResidues2),
		optFloat("crystal_packing", &c.CrystalPacking),
		text("domain_contact_errors", &c.DomainContactErrors),
	}
}

func uniprotSequenceFields(s *domain.UniprotSequence) []field {
	return []field{
		key("db", &s.DB),
		key("uniprot_id", &s.UniprotID),
		key("uniprot_name", &s.UniprotName),
		text("protein_name", &s.ProteinName),
		text("organism_name", &s.OrganismName),
		text("gene_name", &s.GeneName),
		optInt("protein_existence", &s.ProteinExistence),
		optInt("sequence_version", &s.SequenceVersion),
		key("uniprot_sequence", &s.UniprotSequence),
	}
}

func proveanFields(p *domain.Provean) []field {
	return []field{
		key("uniprot_id", &p.UniprotID),
		text("provean_supset_filename", &p.ProveanSupsetFilename),
		optInt("provean_supset_length", &p.ProveanSupsetLength),
		text("provean_errors", &p.ProveanErrors),
		stamp("provean_date_modified", &p.ProveanDateModified),
	}
}

func uniprotDomainFields(d *domain.UniprotDomain) []field {
	return []field{
		integer("uniprot_domain_id", &d.UniprotDomainID),
		key("uniprot_id", &d.UniprotID),
		key("pdbfam_name", &d.PdbfamName),
		integer("pdbfam_idx", &d.PdbfamIdx),
		text("pfam_clan", &d.PfamClan),
		key("alignment_def", &d.AlignmentDef),
		text("pfam_names", &d.PfamNames),
		text("alignment_subdefs", &d.AlignmentSubdefs),
		text("path_to_data", &d.PathToData),
	}
}

func uniprotDomainPairFields(p *domain.UniprotDomainPair) []field {
	return []field{
		integer("uniprot_domain_pair_id", &p.UniprotDomainPairID),
		integer("uniprot_domain_id_1", &p.UniprotDomainID1),
		integer("uniprot_domain_id_2", &p.UniprotDomainID2),
		text("rigids", &p.Rigids),
		text("domain_contact_ids", &p.DomainContactIDs),
		text("path_to_data", &p.PathToData),
	}
}

func uniprotDomainTemplateFields(t *domain.UniprotDomainTemplate) []field {
	return []field{
		integer("uniprot_domain_id", &t.UniprotDomainID),
		text("template_errors", &t.TemplateErrors),
		key("cath_id", &t.CathID),
		optInt("domain_start", &t.DomainStart),
		optInt("domain_end", &t.DomainEnd),
		text("domain_def", &t.DomainDef),
		optFloat("alignment_identity", &t.AlignmentIdentity),
		optFloat("alignment_coverage", &t.AlignmentCoverage),
		optFloat("alignment_score", &t.AlignmentScore),
		stamp("t_date_modified", &t.TDateModified),
	}
}

func uniprotDomainModelFields(m *domain.UniprotDomainModel) []field {
	return []field{
		integer("uniprot_domain_id", &m.UniprotDomainID),
		text("model_errors", &m.ModelErrors),
		text("alignment_filename", &m.AlignmentFilename),
		text("model_filename", &m.ModelFilename),
		text("chain", &m.Chain),
		optFloat("norm_dope", &m.NormDope),
		text("sasa_score", &m.SasaScore),
		stamp("m_date_modified", &m.MDateModified),
	}
}

func mutationMetricsFields(m *domain.MutationMetrics) []field {
	return []field{
		text("mutation_errors", &m.MutationErrors),
		text("model_filename_wt", &m.ModelFilenameWt),
		text("model_filename_mut", &m.ModelFilenameMut),
		text("chain_modeller", &m.ChainModeller),
		text("mutation_modeller", &m.MutationModeller),
		text("stability_energy_wt", &m.StabilityEnergyWt),
		text("stability_energy_mut", &m.StabilityEnergyMut),
		text("physchem_wt", &m.PhyschemWt),
		text("physchem_wt_ownchain", &m.PhyschemWtOwnchain),
		text("physchem_mut", &m.PhyschemMut),
		text("physchem_mut_ownchain", &m.PhyschemMutOwnchain),
		optFloat("matrix_score", &m.MatrixScore),
		text("secondary_structure_wt", &m.SecondaryStructureWt),
		optFloat("solvent_accessibility_wt", &m.SolventAccessibilityWt),
		text("secondary_structure_mut", &m.SecondaryStructureMut),
		optFloat("solvent_accessibility_mut", &m.SolventAccessibilityMut),
		optFloat("provean_score", &m.ProveanScore),
		optFloat("ddg", &m.DDG),
	}
}

func uniprotDomainMutationFields(m *domain.UniprotDomainMutation) []field {
	fs := []field{
		key("uniprot_id", &m.UniprotID),
		integer("uniprot_domain_id", &m.UniprotDomainID),
		key("mutation", &m.Mutation),
	}
	fs = append(fs, mutationMetricsFields(&m.MutationMetrics)...)
	return append(fs, stamp("mut_date_modified", &m.MutDateModified))
}

func uniprotDomainPairTemplateFields(t *domain.UniprotDomainPairTemplate) []field {
	return []field{
		integer("uniprot_domain_pair_id", &t.UniprotDomainPairID),
		integer("domain_contact_id", &t.DomainContactID),
		key("cath_id_1", &t.CathID1),
		key("cath_id_2", &t.CathID2),
		optFloat("identical_1", &t.Identical1),
		optFloat("conserved_1", &t.Conserved1),
		optFloat("coverage_1", &t.Coverage1),
		optFloat("score_1", &t.Score1),
		optFloat("identical_if_1", &t.IdenticalIf1),
		optFloat("conserved_if_1", &t.ConservedIf1),
		optFloat("coverage_if_1", &t.CoverageIf1),
		optFloat("score_if_1", &t.ScoreIf1),
		optFloat("identical_2", &t.Identical2),
		optFloat("conserved_2", &t.Conserved2),
		optFloat("coverage_2", &t.Coverage2),
		optFloat("score_2", &t.Score2),
		optFloat("identical_if_2", &t.IdenticalIf2),
		optFloat("conserved_if_2", &t.ConservedIf2),
		optFloat("coverage_if_2", &t.CoverageIf2),
		optFloat("score_if_2", &t.ScoreIf2),
		optFloat("score_total", &t.ScoreTotal),
		optFloat("score_if_total", &t.ScoreIfTotal),
		optFloat("score_overall", &t.ScoreOverall),
		stamp("t_date_modified", &t.TDateModified),
		text("template_errors", &t.TemplateErrors),
	}
}

func uniprotDomainPairModelFields(m *domain.UniprotDomainPairModel) []field {
	return []field{
		integer("uniprot_domain_pair_id", &m.UniprotDomainPairID),
		text("model_errors", &m.ModelErrors),
		text("alignment_filename_1", &m.AlignmentFilename1),
		text("alignment_filename_2", &m.AlignmentFilename2),
		text("model_filename", &m.ModelFilename),
		text("chain_1", &m.Chain1),
		text("chain_2", &m.Chain2),
		optFloat("norm_dope", &m.NormDope),
		optFloat("interface_area_hydrophobic", &m.InterfaceAreaHydrophobic),
		optFloat("interface_area_hydrophilic", &m.InterfaceAreaHydrophilic),
		optFloat("interface_area_total", &m.InterfaceAreaTotal),
		optFloat("interface_dg", &m.InterfaceDG),
		text("interacting_aa_1", &m.InteractingAA1),
		text("interacting_aa_2", &m.InteractingAA2),
		stamp("m_date_modified", &m.MDateModified),
	}
}

func uniprotDomainPairMutationFields(m *domain.UniprotDomainPairMutation) []field {
	fs := []field{
		key("uniprot_id", &m.UniprotID),
		integer("uniprot_domain_pair_id", &m.UniprotDomainPairID),
		key("mutation", &m.Mutation),
	}
	fs = append(fs, mutationMetricsFields(&m.MutationMetrics)...)
	return append(fs,
		text("analyse_complex_energy_wt", &m.AnalyseComplexEnergyWt),
		text("analyse_complex_energy_mut", &m.AnalyseComplexEnergyMut),
		optFloat("contact_distance_wt", &m.ContactDistanceWt),
		optFloat("contact_distance_mut", &m.ContactDistanceMut),
		stamp("mut_date_modified", &m.MutDateModified),
	)
}
