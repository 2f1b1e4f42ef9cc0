package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sqliteConfig = `
[DEFAULT]
debug = True
n_cores = 4

[DATABASE]
db_type = sqlite
sqlite_db_path = /data/elaspic.db

[SETTINGS]
path_to_archive = /archive/
blast_db_path = /db/nr
pdb_path = /pdb/
bin_path = /opt/elaspic/bin

[GET_MODEL]
modeller_runs = 3

[GET_MUTATION]
foldx_water = -CRYSTAL
foldx_num_of_runs = 5
matrix_type = blosum62
gap_start = -10
gap_extend = -1
`

func TestParseSQLiteConfig(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	cfg, err := Parse([]byte(sqliteConfig))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.DBType != DBSQLite || !cfg.DBIsImmutable || cfg.SQLiteDBPath != "/data/elaspic.db" {
		t.Fatalf("unexpected database settings %+v", cfg)
	}
	if !cfg.Debug || cfg.NCores != 4 || !cfg.LookForInteractions || cfg.RemakeProveanSupset || cfg.WebServer {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.ModellerRuns != 3 || cfg.FoldXWater != "-CRYSTAL" || cfg.FoldXNumOfRuns != 5 || cfg.MatrixType != "blosum62" || cfg.GapStart != -10 || cfg.GapExtend != -1 {
		t.Fatalf("unexpected tool settings %+v", cfg)
	}
	if cfg.BinPath != "/opt/elaspic/bin" || cfg.PathToArchive != "/archive/" {
		t.Fatalf("unexpected settings %+v", cfg)
	}
	want := filepath.Join(tmp, "elaspic") + string(filepath.Separator)
	if cfg.TempPath != want {
		t.Fatalf("temp path = %q want %q", cfg.TempPath, want)
	}
	if st, err := os.Stat(cfg.TempPath); err != nil || !st.IsDir() {
		t.Fatalf("expected temp path to be created: %v", err)
	}
}

func TestParsePostgresConfig(t *testing.T) {
	t.Setenv("TMPDIR", "")
	global := t.TempDir()
	data := `
[DEFAULT]
global_temp_path = ` + global + `
temp_path_suffix = /run-1/

[DATABASE]
db_type = postgresql
db_username = elaspic
db_password = secret
db_url = db.example.org:5432/elaspic
db_schema = elaspic

[SETTINGS]
path_to_archive = s3://bucket/archive
`
	cfg, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.DBType != DBPostgreSQL || cfg.DBIsImmutable {
		t.Fatalf("server databases must be mutable: %+v", cfg)
	}
	if cfg.DBUsername != "elaspic" || cfg.DBPassword != "secret" || cfg.DBURL != "db.example.org:5432/elaspic" || cfg.DBSchema != "elaspic" {
		t.Fatalf("unexpected credentials %+v", cfg)
	}
	if cfg.TempPathSuffix != "run-1/" {
		t.Fatalf("suffix = %q", cfg.TempPathSuffix)
	}
	if !strings.HasPrefix(cfg.TempPath, global) {
		t.Fatalf("expected temp path under global temp path, got %q", cfg.TempPath)
	}
	if cfg.ModellerRuns != 1 || cfg.FoldXWater != "-IGNORE" || cfg.GapStart != -16 {
		t.Fatalf("expected tool defaults, got %+v", cfg)
	}
}

func TestParseRejectsUnsupportedDatabases(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	for _, dbType := range []string{"mysql", "oracle", ""} {
		data := "[DATABASE]\ndb_type = " + dbType + "\n[SETTINGS]\npath_to_archive = /a\n"
		if _, err := Parse([]byte(data)); err == nil {
			t.Fatalf("expected error for db_type %q", dbType)
		}
	}
}

func TestParseRequiredKeys(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	cases := map[string]string{
		"sqlite path":  "[DATABASE]\ndb_type = sqlite\n[SETTINGS]\npath_to_archive = /a\n",
		"archive":      "[DATABASE]\ndb_type = sqlite\nsqlite_db_path = x.db\n",
		"schema":       "[DATABASE]\ndb_type = postgresql\ndb_username = u\ndb_url = h/db\n[SETTINGS]\npath_to_archive = /a\n",
		"bad bool":     "[DEFAULT]\ndebug = maybe\n[DATABASE]\ndb_type = sqlite\nsqlite_db_path = x.db\n[SETTINGS]\npath_to_archive = /a\n",
		"bad int":      "[DATABASE]\ndb_type = sqlite\nsqlite_db_path = x.db\n[SETTINGS]\npath_to_archive = /a\n[GET_MODEL]\nmodeller_runs = many\n",
		"zero n_cores": "[DEFAULT]\nn_cores = 0\n[DATABASE]\ndb_type = sqlite\nsqlite_db_path = x.db\n[SETTINGS]\npath_to_archive = /a\n",
	}
	for name, data := range cases {
		if _, err := Parse([]byte(data)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestSectionsInheritDefaultKeys(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	data := `
[DEFAULT]
path_to_archive = /shared/archive/
modeller_runs = 2
foldx_water = -CRYSTAL

[DATABASE]
db_type = sqlite
sqlite_db_path = x.db

[SETTINGS]
bin_path = /opt/bin

[GET_MUTATION]
foldx_water = -PDB
`
	cfg, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.PathToArchive != "/shared/archive/" {
		t.Fatalf("path_to_archive should come from DEFAULT, got %q", cfg.PathToArchive)
	}
	if cfg.ModellerRuns != 2 {
		t.Fatalf("missing GET_MODEL section should inherit DEFAULT, got %d", cfg.ModellerRuns)
	}
	if cfg.FoldXWater != "-PDB" {
		t.Fatalf("section value must win over DEFAULT, got %q", cfg.FoldXWater)
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.ini")
	if err := os.WriteFile(path, []byte(sqliteConfig), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BlastDBPath != "/db/nr" {
		t.Fatalf("unexpected blast db %q", cfg.BlastDBPath)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.ini")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
