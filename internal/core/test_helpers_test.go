package core

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"elaspicdb/internal/artifact"
	"elaspicdb/internal/blob"
	"elaspicdb/internal/infra/persistence/sqlite"
	"elaspicdb/pkg/domain"
)

var fixedTime = time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

const (
	testUniprotID = "P04637"
	testDataPath  = "human/P04/63/P04637/P53*94-292/"
	testBasePath  = "human/P04/63/P04637/"
	testSupset    = "P04637_provean_supset"
	testAlignment = "P04637_1tsrA01.aln"
	testModel     = "P04637.B99990001.pdb"
	testClustal   = "CLUSTAL W\n\nP04637   SVPSQKTYQG\n1tsrA01  SSPSQKTYQG\n"
)

func f64(v float64) *float64 { return &v }

func i64(v int64) *int64 { return &v }

type testEnv struct {
	svc     *Service
	archive blob.Store
	tempDir string
}

// newTestEnv builds a service over an in-memory sqlite database, an
// in-memory archive and a temp tier under t.TempDir.
func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	return newTestEnvWithArchive(t, blob.NewMemory(), opts...)
}

func newTestEnvWithArchive(t *testing.T, archive blob.Store, opts ...Option) *testEnv {
	t.Helper()
	store, err := sqlite.NewMemoryStore(context.Background())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	tempDir := filepath.Join(t.TempDir(), "elaspic")
	arts, err := artifact.New(tempDir, archive)
	if err != nil {
		t.Fatalf("artifact store: %v", err)
	}
	opts = append([]Option{WithClock(ClockFunc(func() time.Time { return fixedTime }))}, opts...)
	svc := NewService(store, arts, opts...)
	t.Cleanup(func() { _ = svc.Close() })
	return &testEnv{svc: svc, archive: archive, tempDir: tempDir}
}

func (e *testEnv) writeTemp(t *testing.T, prefix, name, content string) {
	t.Helper()
	p := e.svc.Artifacts().TempPath(prefix, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func (e *testEnv) readTemp(t *testing.T, prefix, name string) string {
	t.Helper()
	data, err := os.ReadFile(e.svc.Artifacts().TempPath(prefix, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

// clearTemp empties the temporary tier as a fresh worker would see it.
func (e *testEnv) clearTemp(t *testing.T) {
	t.Helper()
	if err := os.RemoveAll(e.tempDir); err != nil {
		t.Fatalf("clear temp: %v", err)
	}
	if err := os.MkdirAll(e.tempDir, 0o755); err != nil {
		t.Fatalf("recreate temp: %v", err)
	}
}

func (e *testEnv) archiveKeys(t *testing.T) []string {
	t.Helper()
	keys, err := e.svc.Artifacts().List(context.Background(), "")
	if err != nil {
		t.Fatalf("list archive: %v", err)
	}
	return keys
}

// seedBase stores the sequence, Provean record, structural domain and
// protein domain the other fixtures hang from.
func seedBase(t *testing.T, svc *Service) domain.UniprotDomain {
	t.Helper()
	var ud domain.UniprotDomain
	err := svc.Store().RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := tx.UpsertUniprotSequence(domain.UniprotSequence{DB: "sp", UniprotID: testUniprotID, UniprotName: "P53_HUMAN", UniprotSequence: "MEEPQSDPSV"}); err != nil {
			return err
		}
		if err := tx.UpsertProvean(domain.Provean{UniprotID: testUniprotID, ProveanSupsetFilename: testSupset, ProveanSupsetLength: i64(120), ProveanDateModified: fixedTime}); err != nil {
			return err
		}
		if err := tx.UpsertDomain(domain.Domain{CathID: "1tsrA01", PDBID: "1tsr", PDBChain: "A", PDBDomainDef: "94:292", PDBPdbfamName: "P53"}); err != nil {
			return err
		}
		var err error
		ud, err = tx.UpsertUniprotDomain(domain.UniprotDomain{UniprotID: testUniprotID, PdbfamName: "P53", PdbfamIdx: 1, AlignmentDef: "94:292", PathToData: testDataPath})
		return err
	})
	if err != nil {
		t.Fatalf("seed base rows: %v", err)
	}
	return ud
}

func modelledDomain(ud domain.UniprotDomain) domain.UniprotDomain {
	ud.Template = &domain.UniprotDomainTemplate{
		CathID:            "1tsrA01",
		DomainDef:         "94:292",
		AlignmentIdentity: f64(0.98),
		Model: &domain.UniprotDomainModel{
			AlignmentFilename: testAlignment,
			ModelFilename:     testModel,
			NormDope:          f64(-1.25),
		},
	}
	return ud
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	mu    sync.Mutex
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (c *captureLogger) add(level, msg string, args []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, logEntry{level: level, msg: msg, args: args})
}

func (c *captureLogger) Debug(msg string, args ...any) { c.add("debug", msg, args) }
func (c *captureLogger) Info(msg string, args ...any)  { c.add("info", msg, args) }
func (c *captureLogger) Warn(msg string, args ...any)  { c.add("warn", msg, args) }
func (c *captureLogger) Error(msg string, args ...any) { c.add("error", msg, args) }

func (c *captureLogger) count(level string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if e.level == level {
			n++
		}
	}
	return n
}
