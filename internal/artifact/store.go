// Package artifact coordinates the two storage tiers holding pipeline
// artifacts: a temporary directory where external tools read and write real
// files, and an archive blob store that keeps the durable copy.
//
// Every artifact is addressed by the owning record's path_to_data prefix and
// a file name relative to it. The same relative key is used in both tiers.
package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"elaspicdb/internal/blob"
)

// ErrMissing is returned when an artifact exists in neither tier.
var ErrMissing = errors.New("artifact: not found in temporary or archive storage")

const (
	directionRestore = "restore"
	directionArchive = "archive"

	outcomeOK      = "ok"
	outcomeMissing = "missing"
	outcomeError   = "error"
)

// Store moves artifacts between the temporary directory and the archive.
type Store struct {
	tempDir string
	archive blob.Store
	copies  *prometheus.CounterVec
	bytes   *prometheus.CounterVec
}

// Option configures a Store.
type Option func(*Store)

// WithRegisterer registers the copy metrics with reg instead of leaving them
// unregistered.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Store) {
		s.copies, s.bytes = newMetrics(promauto.With(reg))
	}
}

func newMetrics(f promauto.Factory) (*prometheus.CounterVec, *prometheus.CounterVec) {
	copies := f.NewCounterVec(prometheus.CounterOpts{
		Name: "elaspic_artifact_copies_total",
		Help: "Artifact copies between the temporary and archive tiers by direction and outcome",
	}, []string{"direction", "outcome"})
	volume := f.NewCounterVec(prometheus.CounterOpts{
		Name: "elaspic_artifact_copy_bytes_total",
		Help: "Bytes copied between the temporary and archive tiers by direction",
	}, []string{"direction"})
	return copies, volume
}

// New constructs a Store over tempDir and archive. tempDir is created when missing.
func New(tempDir string, archive blob.Store, opts ...Option) (*Store, error) {
	if tempDir == "" {
		return nil, fmt.Errorf("temp dir required")
	}
	if archive == nil {
		return nil, fmt.Errorf("archive store required")
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	s := &Store{tempDir: tempDir, archive: archive}
	s.copies, s.bytes = newMetrics(promauto.With(nil))
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TempDir returns the temporary tier root.
func (s *Store) TempDir() string { return s.tempDir }

// ArchiveStore returns the archive tier.
func (s *Store) ArchiveStore() blob.Store { return s.archive }

// Key joins a record prefix and a file name into a tier-independent key.
func Key(prefix, name string) string {
	return strings.TrimPrefix(path.Join(prefix, name), "/")
}

// TempPath returns the temporary-tier file path of an artifact.
func (s *Store) TempPath(prefix, name string) string {
	return filepath.Join(s.tempDir, filepath.FromSlash(Key(prefix, name)))
}

// InTemp reports whether the artifact is present in the temporary tier.
func (s *Store) InTemp(prefix, name string) bool {
	st, err := os.Stat(s.TempPath(prefix, name))
	return err == nil && !st.IsDir()
}

// InArchive reports whether the artifact is present in the archive tier.
func (s *Store) InArchive(ctx context.Context, prefix, name string) (bool, error) {
	_, err := s.archive.Head(ctx, Key(prefix, name))
	if errors.Is(err, blob.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Restore copies an artifact from the archive into the temporary tier,
// creating directories and replacing any existing temporary copy.
func (s *Store) Restore(ctx context.Context, prefix, name string) error {
	key := Key(prefix, name)
	_, rc, err := s.archive.Get(ctx, key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			s.copies.WithLabelValues(directionRestore, outcomeMissing).Inc()
			return fmt.Errorf("restore %s: %w: %w", key, ErrMissing, err)
		}
		s.copies.WithLabelValues(directionRestore, outcomeError).Inc()
		return fmt.Errorf("restore %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	n, err := writeFileAtomic(s.TempPath(prefix, name), rc)
	if err != nil {
		s.copies.WithLabelValues(directionRestore, outcomeError).Inc()
		return fmt.Errorf("restore %s: %w", key, err)
	}
	s.copies.WithLabelValues(directionRestore, outcomeOK).Inc()
	s.bytes.WithLabelValues(directionRestore).Add(float64(n))
	return nil
}

// Archive copies an artifact from the temporary tier into the archive,
// replacing any archived copy.
func (s *Store) Archive(ctx context.Context, prefix, name string) error {
	key := Key(prefix, name)
	f, err := os.Open(s.TempPath(prefix, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.copies.WithLabelValues(directionArchive, outcomeMissing).Inc()
			return fmt.Errorf("archive %s: %w: %w", key, ErrMissing, err)
		}
		s.copies.WithLabelValues(directionArchive, outcomeError).Inc()
		return fmt.Errorf("archive %s: %w", key, err)
	}
	defer func() { _ = f.Close() }()
	info, err := s.archive.Put(ctx, key, f, blob.PutOptions{ContentType: blob.ContentTypeFor(name), Overwrite: true})
	if err != nil {
		s.copies.WithLabelValues(directionArchive, outcomeError).Inc()
		return fmt.Errorf("archive %s: %w", key, err)
	}
	s.copies.WithLabelValues(directionArchive, outcomeOK).Inc()
	s.bytes.WithLabelValues(directionArchive).Add(float64(info.Size))
	return nil
}

// Open reads an artifact from the temporary tier, falling back to the archive.
func (s *Store) Open(ctx context.Context, prefix, name string) (io.ReadCloser, error) {
	f, err := os.Open(s.TempPath(prefix, name))
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	key := Key(prefix, name)
	_, rc, err := s.archive.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, fmt.Errorf("open %s: %w", key, ErrMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return rc, nil
}

// WriteRecord stores v as an indented JSON document in the archive under
// prefix/name, replacing an existing record.
func (s *Store) WriteRecord(ctx context.Context, prefix, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode record %s: %w", name, err)
	}
	key := Key(prefix, name)
	if _, err := s.archive.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{ContentType: blob.ContentTypeFor(name), Overwrite: true}); err != nil {
		return fmt.Errorf("write record %s: %w", key, err)
	}
	return nil
}

// ReadRecord decodes the JSON record stored in the archive under key.
// Fields unknown to v are rejected.
func (s *Store) ReadRecord(ctx context.Context, key string, v any) error {
	_, rc, err := s.archive.Get(ctx, key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return fmt.Errorf("read record %s: %w", key, ErrMissing)
		}
		return fmt.Errorf("read record %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	dec := json.NewDecoder(rc)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode record %s: %w", key, err)
	}
	return nil
}

// List returns the archive keys under prefix, ordered by key.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	infos, err := s.archive.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list archive %s: %w", prefix, err)
	}
	keys := make([]string, len(infos))
	for i, info := range infos {
		keys[i] = info.Key
	}
	return keys, nil
}

// writeFileAtomic streams r into a temporary sibling of dst and renames it
// over dst once fully written.
func writeFileAtomic(dst string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".restore-*")
	if err != nil {
		return 0, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return 0, err
	}
	return n, nil
}
