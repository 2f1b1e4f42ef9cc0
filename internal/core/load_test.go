package core

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"elaspicdb/internal/blob"
	"elaspicdb/pkg/domain"
)

func TestClassifyRecord(t *testing.T) {
	cases := map[string]domain.EntityType{
		testDataPath + TemplateRecord:            domain.EntityUniprotDomainTemplate,
		testDataPath + ModelRecord:               domain.EntityUniprotDomainModel,
		testDataPath + "R175H/" + MutationRecord: domain.EntityUniprotDomainMutation,
		pairDataPath + TemplateRecord:            domain.EntityUniprotDomainPairTemplate,
		pairDataPath + ModelRecord:               domain.EntityUniprotDomainPairModel,
		pairDataPath + "R175H/" + MutationRecord: domain.EntityUniprotDomainPairMutation,
	}
	for key, want := range cases {
		i := classifyRecord(key)
		if i < 0 || archiveRecords[i].entity != want {
			t.Fatalf("classifyRecord(%q) = %d, want %s", key, i, want)
		}
	}
	for _, key := range []string{testDataPath + testModel, testDataPath + MutationRecord, "template.json"} {
		if i := classifyRecord(key); i >= 0 {
			t.Fatalf("classifyRecord(%q) = %d, want -1", key, i)
		}
	}
}

func TestLoadFromArchiveRebuildsComputedTables(t *testing.T) {
	ctx := context.Background()
	archive := blob.NewMemory()
	src := newTestEnvWithArchive(t, archive)
	ud := mergeModelledDomain(t, src)
	src.writeTemp(t, testDataPath, "R175H/wt.pdb", "WT\n")
	src.writeTemp(t, testDataPath, "R175H/mut.pdb", "MUT\n")
	mut := &domain.UniprotDomainMutation{
		UniprotID:       testUniprotID,
		UniprotDomainID: ud.UniprotDomainID,
		Mutation:        "R175H",
		MutationMetrics: domain.MutationMetrics{ModelFilenameWt: "R175H/wt.pdb", ModelFilenameMut: "R175H/mut.pdb", DDG: f64(3.4)},
	}
	if err := src.svc.MergeDomainMutation(ctx, mut, ud.PathToData); err != nil {
		t.Fatalf("merge mutation: %v", err)
	}
	put := func(key, body string) {
		if _, err := archive.Put(ctx, key, strings.NewReader(body), blob.PutOptions{Overwrite: true}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	put("fly/Q9V/AB/Q9VAB1/X*1-10/"+TemplateRecord, `{"uniprot_domain_id": 1, "pdb_template": "old"}`)
	put("fly/Q9V/AB/Q9VAB1/X*1-10/Y*1-10/Q9VAB2/"+ModelRecord, `{"uniprot_domain_pair_id": 999, "model_filename": "m.pdb"}`)

	logger := &captureLogger{}
	dst := newTestEnvWithArchive(t, archive, WithLogger(logger))
	if got := seedBase(t, dst.svc); got.UniprotDomainID != ud.UniprotDomainID {
		t.Fatalf("fixture ids diverged: %d vs %d", got.UniprotDomainID, ud.UniprotDomainID)
	}
	stats, err := dst.svc.LoadFromArchive(ctx)
	if err != nil {
		t.Fatalf("load from archive: %v", err)
	}
	for _, entity := range []domain.EntityType{domain.EntityUniprotDomainTemplate, domain.EntityUniprotDomainModel, domain.EntityUniprotDomainMutation} {
		if stats.Merged[entity] != 1 {
			t.Fatalf("merged %s = %d, want 1 (stats %+v)", entity, stats.Merged[entity], stats)
		}
	}
	if stats.Skipped != 2 {
		t.Fatalf("skipped = %d, want 2", stats.Skipped)
	}
	if logger.count("warn") != 1 {
		t.Fatalf("orphan record should be warned about once, got %d", logger.count("warn"))
	}

	domains, err := dst.svc.GetUniprotDomain(ctx, testUniprotID, true)
	if err != nil {
		t.Fatalf("get uniprot domain: %v", err)
	}
	if len(domains) != 1 || domains[0].Template.Model == nil || domains[0].Template.Model.ModelFilename != testModel {
		t.Fatalf("model not rebuilt: %+v", domains)
	}
	got, err := dst.svc.GetUniprotDomainMutation(ctx, domains[0], "R175H")
	if err != nil || got == nil || got.DDG == nil || *got.DDG != 3.4 {
		t.Fatalf("mutation not rebuilt: %+v %v", got, err)
	}
	if dst.readTemp(t, testDataPath, "R175H/wt.pdb") != "WT\n" {
		t.Fatalf("wild-type structure not restored")
	}
}

func TestLoadFromArchiveSkipsOrphanRecords(t *testing.T) {
	const (
		orphanDomain = "human/Q99/99/Q99999/P53*1-50/"
		orphanPair   = orphanDomain + "SWIB*1-50/Q99998/"
	)
	cases := []struct {
		name string
		key  string
		body string
	}{
		{"domain template", orphanDomain + TemplateRecord, `{"uniprot_domain_id": 999, "cath_id": "1tsrA01", "domain_def": "1:50"}`},
		{"domain model", orphanDomain + ModelRecord, `{"uniprot_domain_id": 999, "model_filename": "m.pdb"}`},
		{"domain mutation", orphanDomain + "R1A/" + MutationRecord, `{"uniprot_id": "Q99999", "uniprot_domain_id": 999, "mutation": "R1A"}`},
		{"pair template", orphanPair + TemplateRecord, `{"uniprot_domain_pair_id": 999, "domain_contact_id": 1, "cath_id_1": "1ycrB00", "cath_id_2": "1ycrA00"}`},
		{"pair model", orphanPair + ModelRecord, `{"uniprot_domain_pair_id": 999, "model_filename": "m.pdb"}`},
		{"pair mutation", orphanPair + "R1A/" + MutationRecord, `{"uniprot_id": "Q99999", "uniprot_domain_pair_id": 999, "mutation": "R1A"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			archive := blob.NewMemory()
			src := newTestEnvWithArchive(t, archive)
			ud := mergeModelledDomain(t, src)
			mut := &domain.UniprotDomainMutation{UniprotID: testUniprotID, UniprotDomainID: ud.UniprotDomainID, Mutation: "R175H"}
			if err := src.svc.MergeDomainMutation(ctx, mut, ud.PathToData); err != nil {
				t.Fatalf("merge mutation: %v", err)
			}
			if _, err := archive.Put(ctx, tc.key, strings.NewReader(tc.body), blob.PutOptions{}); err != nil {
				t.Fatalf("put %s: %v", tc.key, err)
			}
			if classifyRecord(tc.key) < 0 {
				t.Fatalf("%s is not a record key", tc.key)
			}

			logger := &captureLogger{}
			dst := newTestEnvWithArchive(t, archive, WithLogger(logger))
			seedBase(t, dst.svc)
			stats, err := dst.svc.LoadFromArchive(ctx)
			if err != nil {
				t.Fatalf("orphan record must not abort the load: %v", err)
			}
			if stats.Skipped != 1 || logger.count("warn") != 1 {
				t.Fatalf("skipped = %d warnings = %d, want 1 each", stats.Skipped, logger.count("warn"))
			}
			for _, entity := range []domain.EntityType{domain.EntityUniprotDomainTemplate, domain.EntityUniprotDomainModel, domain.EntityUniprotDomainMutation} {
				if stats.Merged[entity] != 1 {
					t.Fatalf("merged %s = %d, want 1 (stats %+v)", entity, stats.Merged[entity], stats)
				}
			}
			if _, ok, err := dst.svc.Store().GetUniprotDomainMutation(ctx, ud.UniprotDomainID, "R175H"); err != nil || !ok {
				t.Fatalf("sibling mutation not rebuilt: ok=%v err=%v", ok, err)
			}
		})
	}
}

func writeTSV(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func writeBaseDumps(t *testing.T, dir string) {
	t.Helper()
	writeTSV(t, dir, "domain.txt",
		"cath_id\tpdb_id\tpdb_type\tpdb_resolution\tpdb_chain\tpdb_domain_def\tpfam_name\tpdb_pdbfam_idx\tdomain_errors",
		"1tsrA01\t1tsr\tX-ray\t2.2\tA\t94:292\tP53\t1\t\\N",
		"1ycrA00\t1ycr\tX-ray\t2.6\tA\t17:125\tSWIB\t1\t\\N",
	)
	writeTSV(t, dir, "domain_contact.txt",
		"domain_contact_id\tcath_id_1\tcath_id_2\tmin_interchain_distance\tcontact_volume\tatom_count_1\tatom_count_2\tcontact_residues_1\tcontact_residues_2\tcrystal_packing",
		"1\t1tsrA01\t1ycrA00\t3.2\t\\N\t10.0\t12\t120,121\t18\t\\N",
	)
	writeTSV(t, dir, "uniprot_sequence.txt",
		"db\tuniprot_id\tuniprot_name\tprotein_name\torganism_name\tgene_name\tprotein_existence\tsequence_version\tuniprot_sequence\tlegacy_column",
		"sp\tP04637\tP53_HUMAN\tCellular tumor antigen p53\tHomo sapiens\tTP53\t1\t4\tMEEPQSDPSV\tignored",
		"sp\tQ00987\tMDM2_HUMAN\tE3 ubiquitin-protein ligase Mdm2\tHomo sapiens\tMDM2\t1\t1\tMCNTNMSVPT\tignored",
	)
}

func TestLoadFromTSVPopulatesBaseTables(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeBaseDumps(t, dir)
	writeTSV(t, dir, "uniprot_domain.txt",
		"uniprot_domain_id\tuniprot_id\tpfam_name\tpdbfam_idx\tpfam_clan\talignment_def\tpfam_names\talignment_subdefs\tpath_to_data",
		"5\tP04637\tP53\t1\t\\N\t94:292\tP53\t\\N\t\\N",
		"6\tQ00987\tSWIB\t1\tCL0123\t17:125\tSWIB\t\\N\tcustom/path/",
	)
	writeTSV(t, dir, "uniprot_domain_pair.txt",
		"uniprot_domain_pair_id\tuniprot_domain_id_1\tuniprot_domain_id_2\trigids\tdomain_contact_ids\tpath_to_data",
		"7\t5\t6\t\\N\t1\t\\N",
	)
	env := newTestEnv(t)
	stats, err := env.svc.LoadFromTSV(ctx, dir)
	if err != nil {
		t.Fatalf("load from tsv: %v", err)
	}
	want := map[domain.EntityType]int{
		domain.EntityDomain:            2,
		domain.EntityDomainContact:     1,
		domain.EntityUniprotSequence:   2,
		domain.EntityUniprotDomain:     2,
		domain.EntityUniprotDomainPair: 1,
	}
	for entity, n := range want {
		if stats.Merged[entity] != n {
			t.Fatalf("merged %s = %d, want %d", entity, stats.Merged[entity], n)
		}
	}

	seq, err := env.svc.GetUniprotSequence(ctx, testUniprotID, false)
	if err != nil || seq == nil || seq.GeneName != "TP53" || seq.SequenceVersion == nil || *seq.SequenceVersion != 4 {
		t.Fatalf("unexpected sequence %+v %v", seq, err)
	}
	domains, err := env.svc.GetDomain(ctx, []string{"P53"}, false)
	if err != nil || len(domains) != 1 {
		t.Fatalf("get domain: %+v %v", domains, err)
	}
	if d := domains[0]; d.PDBResolution == nil || *d.PDBResolution != 2.2 || d.DomainErrors != "" {
		t.Fatalf("unexpected domain %+v", d)
	}
	forward, _, err := env.svc.GetDomainContact(ctx, []string{"P53"}, []string{"SWIB"}, false)
	if err != nil || len(forward) != 1 {
		t.Fatalf("get contact: %+v %v", forward, err)
	}
	if c := forward[0]; c.AtomCount1 == nil || *c.AtomCount1 != 10 || c.ContactVolume != nil {
		t.Fatalf("unexpected contact %+v", c)
	}

	uds, err := env.svc.Store().ListUniprotDomains(ctx, testUniprotID)
	if err != nil || len(uds) != 1 {
		t.Fatalf("list uniprot domains: %+v %v", uds, err)
	}
	if uds[0].UniprotDomainID != 5 || uds[0].PathToData != testDataPath {
		t.Fatalf("path_to_data not derived: %+v", uds[0])
	}
	partner, err := env.svc.Store().ListUniprotDomains(ctx, pairPartnerID)
	if err != nil || len(partner) != 1 || partner[0].PathToData != "custom/path/" {
		t.Fatalf("explicit path_to_data must be kept: %+v %v", partner, err)
	}
	pairs, err := env.svc.Store().ListUniprotDomainPairs(ctx, testUniprotID)
	if err != nil || len(pairs) != 1 {
		t.Fatalf("list pairs: %+v %v", pairs, err)
	}
	if pairs[0].PathToData != pairDataPath {
		t.Fatalf("pair path_to_data = %q, want %q", pairs[0].PathToData, pairDataPath)
	}
}

func TestLoadFromTSVAcceptsHeaderlessDumps(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeTSV(t, dir, "domain.txt",
		"1tsrA01\t1tsr\tX-ray\t2.2\tA\t94:292\tPF00870\tP53",
		"1ycrA00\t1ycr\tX-ray\t2.6\tA\t17:125\tPF02201\tSWIB",
	)
	writeTSV(t, dir, "domain_contact.txt",
		"1\t1tsrA01\t120,121\t1ycrA00\t18",
	)
	writeTSV(t, dir, "uniprot_sequence.txt",
		"P04637\tP53_HUMAN\tCellular tumor antigen p53\tMEEPQSDPSV",
	)
	env := newTestEnv(t)
	stats, err := env.svc.LoadFromTSV(ctx, dir)
	if err != nil {
		t.Fatalf("load headerless dumps: %v", err)
	}
	if stats.Merged[domain.EntityDomain] != 2 || stats.Merged[domain.EntityDomainContact] != 1 || stats.Merged[domain.EntityUniprotSequence] != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	domains, err := env.svc.GetDomain(ctx, []string{"SWIB"}, false)
	if err != nil || len(domains) != 1 || domains[0].CathID != "1ycrA00" || domains[0].PDBType != "X-ray" {
		t.Fatalf("unexpected domains %+v %v", domains, err)
	}
	forward, _, err := env.svc.GetDomainContact(ctx, []string{"P53"}, []string{"SWIB"}, false)
	if err != nil || len(forward) != 1 || forward[0].ContactResidues1 != "120,121" || forward[0].ContactResidues2 != "18" {
		t.Fatalf("unexpected contacts %+v %v", forward, err)
	}
	seq, err := env.svc.GetUniprotSequence(ctx, testUniprotID, false)
	if err != nil || seq == nil || seq.UniprotName != "P53_HUMAN" || seq.ProteinName != "Cellular tumor antigen p53" {
		t.Fatalf("unexpected sequence %+v %v", seq, err)
	}
}

func TestTSVHeaderDetection(t *testing.T) {
	table := tsvTables[0]
	if !table.isHeader([]string{"pdb_id", "cath_id"}) {
		t.Fatalf("row naming cath_id should be a header")
	}
	if table.isHeader([]string{"1tsrA01", "1tsr"}) {
		t.Fatalf("data row taken for a header")
	}
	if got := tsvTables[3].column(" pfam_name "); got != "pdbfam_name" {
		t.Fatalf("column alias = %q", got)
	}
}

func TestLoadFromTSVOptionalAndRequiredFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	env := newTestEnv(t)
	if _, err := env.svc.LoadFromTSV(ctx, dir); err == nil {
		t.Fatalf("expected error for missing required dumps")
	}
	writeBaseDumps(t, dir)
	stats, err := env.svc.LoadFromTSV(ctx, dir)
	if err != nil {
		t.Fatalf("load without optional dumps: %v", err)
	}
	if stats.Merged[domain.EntityUniprotDomain] != 0 || stats.Merged[domain.EntityDomain] != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestLoadFromTSVRejectsMalformedValues(t *testing.T) {
	dir := t.TempDir()
	writeBaseDumps(t, dir)
	writeTSV(t, dir, "domain.txt",
		"cath_id\tpdb_id\tpdb_resolution\tpdb_chain\tpdb_domain_def\tpdb_pdbfam_name",
		"1tsrA01\t1tsr\thigh\tA\t94:292\tP53",
	)
	env := newTestEnv(t)
	_, err := env.svc.LoadFromTSV(context.Background(), dir)
	if err == nil || !strings.Contains(err.Error(), "domain.txt") || !strings.Contains(err.Error(), "pdb_resolution") {
		t.Fatalf("expected a located parse error, got %v", err)
	}
}

func TestSetColumn(t *testing.T) {
	var row struct {
		S  string
		I  int64
		PI *int64
		PF *float64
	}
	v := reflect.ValueOf(&row).Elem()
	if err := setColumn(v.Field(0), "abc"); err != nil || row.S != "abc" {
		t.Fatalf("string: %v %q", err, row.S)
	}
	if err := setColumn(v.Field(1), "42"); err != nil || row.I != 42 {
		t.Fatalf("int: %v %d", err, row.I)
	}
	if err := setColumn(v.Field(2), "3.0"); err != nil || row.PI == nil || *row.PI != 3 {
		t.Fatalf("float-formatted int: %v %v", err, row.PI)
	}
	if err := setColumn(v.Field(2), "3.5"); err == nil {
		t.Fatalf("fractional value must not become an integer")
	}
	if err := setColumn(v.Field(3), ""); err != nil || row.PF != nil {
		t.Fatalf("empty float should stay nil: %v %v", err, row.PF)
	}
}
