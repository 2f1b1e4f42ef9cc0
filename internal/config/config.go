// Package config loads the pipeline configuration file.
//
// The file is INI formatted with the sections DEFAULT, DATABASE, SETTINGS,
// GET_MODEL and GET_MUTATION. Keys in DEFAULT fall back to built-in values,
// and the other sections inherit keys from DEFAULT.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// DBType selects the relational backend.
type DBType string

const (
	DBSQLite     DBType = "sqlite"
	DBPostgreSQL DBType = "postgresql"
	// DBMySQL is recognised only to be rejected with a clear message.
	DBMySQL DBType = "mysql"
)

const (
	sectionDatabase    = "DATABASE"
	sectionSettings    = "SETTINGS"
	sectionGetModel    = "GET_MODEL"
	sectionGetMutation = "GET_MUTATION"
)

var defaults = map[string]string{
	"global_temp_path":      "/tmp/",
	"temp_path_suffix":      "elaspic/",
	"debug":                 "False",
	"look_for_interactions": "True",
	"remake_provean_supset": "False",
	"n_cores":               "1",
	"web_server":            "False",
}

// Config holds the resolved settings.
type Config struct {
	GlobalTempPath      string
	TempPathSuffix      string
	Debug               bool
	LookForInteractions bool
	RemakeProveanSupset bool
	NCores              int
	WebServer           bool

	DBType        DBType
	SQLiteDBPath  string
	DBUsername    string
	DBPassword    string
	DBURL         string
	DBSchema      string
	DBIsImmutable bool

	PathToArchive string
	BlastDBPath   string
	PDBPath       string
	BinPath       string

	ModellerRuns int

	FoldXWater     string
	FoldXNumOfRuns int
	MatrixType     string
	GapStart       int
	GapExtend      int

	// TempPath is $TMPDIR (or GlobalTempPath) joined with TempPathSuffix.
	TempPath string
}

// Load reads the configuration at path and creates the temp directory.
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return parse(file)
}

// Parse reads configuration from INI bytes and creates the temp directory.
func Parse(data []byte) (*Config, error) {
	file, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return parse(file)
}

func parse(file *ini.File) (*Config, error) {
	def := file.Section(ini.DefaultSection)
	for k, v := range defaults {
		if !def.HasKey(k) {
			if _, err := def.NewKey(k, v); err != nil {
				return nil, err
			}
		}
	}
	r := reader{file: file}
	cfg := &Config{
		GlobalTempPath:      r.str(ini.DefaultSection, "global_temp_path"),
		TempPathSuffix:      strings.Trim(r.str(ini.DefaultSection, "temp_path_suffix"), "/") + "/",
		Debug:               r.boolean(ini.DefaultSection, "debug"),
		LookForInteractions: r.boolean(ini.DefaultSection, "look_for_interactions"),
		RemakeProveanSupset: r.boolean(ini.DefaultSection, "remake_provean_supset"),
		NCores:              r.integer(ini.DefaultSection, "n_cores"),
		WebServer:           r.boolean(ini.DefaultSection, "web_server"),
	}

	cfg.DBType = DBType(strings.ToLower(r.required(sectionDatabase, "db_type")))
	switch cfg.DBType {
	case DBSQLite:
		cfg.SQLiteDBPath = r.required(sectionDatabase, "sqlite_db_path")
		cfg.DBIsImmutable = true
	case DBPostgreSQL:
		cfg.DBUsername = r.required(sectionDatabase, "db_username")
		cfg.DBPassword = r.str(sectionDatabase, "db_password")
		cfg.DBURL = r.required(sectionDatabase, "db_url")
		cfg.DBSchema = r.required(sectionDatabase, "db_schema")
	case DBMySQL:
		r.fail(fmt.Errorf("db_type %q is no longer supported; use sqlite or postgresql", cfg.DBType))
	default:
		r.fail(fmt.Errorf("db_type %q is not supported; use sqlite or postgresql", cfg.DBType))
	}

	cfg.PathToArchive = r.required(sectionSettings, "path_to_archive")
	cfg.BlastDBPath = r.str(sectionSettings, "blast_db_path")
	cfg.PDBPath = r.str(sectionSettings, "pdb_path")
	cfg.BinPath = r.str(sectionSettings, "bin_path")

	cfg.ModellerRuns = r.intOr(sectionGetModel, "modeller_runs", 1)
	cfg.FoldXWater = r.strOr(sectionGetMutation, "foldx_water", "-IGNORE")
	cfg.FoldXNumOfRuns = r.intOr(sectionGetMutation, "foldx_num_of_runs", 1)
	cfg.MatrixType = r.strOr(sectionGetMutation, "matrix_type", "blosum80")
	cfg.GapStart = r.intOr(sectionGetMutation, "gap_start", -16)
	cfg.GapExtend = r.intOr(sectionGetMutation, "gap_extend", -4)
	if r.err != nil {
		return nil, r.err
	}
	if cfg.NCores < 1 {
		return nil, fmt.Errorf("n_cores must be positive, got %d", cfg.NCores)
	}

	tempPath, err := TempPath(cfg.GlobalTempPath, cfg.TempPathSuffix)
	if err != nil {
		return nil, err
	}
	cfg.TempPath = tempPath
	return cfg, nil
}

// TempPath resolves the working directory for temporary artifacts and
// creates it. $TMPDIR takes precedence over globalTempPath.
func TempPath(globalTempPath, suffix string) (string, error) {
	base := os.Getenv("TMPDIR")
	if base == "" {
		base = globalTempPath
	}
	path := filepath.Join(base, suffix)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("create temp path: %w", err)
	}
	return path + string(filepath.Separator), nil
}

// reader collects the first error so parse reads linearly.
type reader struct {
	file *ini.File
	err  error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// key looks name up in section, falling back to DEFAULT like the other
// sections inherit it.
func (r *reader) key(section, name string) (*ini.Key, bool) {
	if sec, err := r.file.GetSection(section); err == nil && sec.HasKey(name) {
		return sec.Key(name), true
	}
	if def := r.file.Section(ini.DefaultSection); section != ini.DefaultSection && def.HasKey(name) {
		return def.Key(name), true
	}
	return nil, false
}

func (r *reader) str(section, name string) string {
	return r.strOr(section, name, "")
}

func (r *reader) strOr(section, name, fallback string) string {
	k, ok := r.key(section, name)
	if !ok {
		return fallback
	}
	return strings.TrimSpace(k.String())
}

func (r *reader) required(section, name string) string {
	v := r.str(section, name)
	if v == "" {
		r.fail(fmt.Errorf("[%s] %s is required", section, name))
	}
	return v
}

func (r *reader) boolean(section, name string) bool {
	k, ok := r.key(section, name)
	if !ok {
		return false
	}
	v, err := k.Bool()
	if err != nil {
		r.fail(fmt.Errorf("[%s] %s: %w", section, name, err))
	}
	return v
}

func (r *reader) integer(section, name string) int {
	return r.intOr(section, name, 0)
}

func (r *reader) intOr(section, name string, fallback int) int {
	k, ok := r.key(section, name)
	if !ok {
		return fallback
	}
	v, err := k.Int()
	if err != nil {
		r.fail(fmt.Errorf("[%s] %s: %w", section, name, err))
	}
	return v
}
