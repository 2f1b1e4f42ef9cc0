package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"elaspicdb/pkg/domain"
)

// ModellerBinary is the executable name of the Modeller script runner.
const ModellerBinary = "mod9.23"

// Modeller builds homology models from a Clustal/PIR alignment.
type Modeller struct {
	runner *Runner
	runs   int
}

// NewModeller returns a wrapper producing runs models per job.
func NewModeller(runner *Runner, runs int) *Modeller {
	if runs < 1 {
		runs = 1
	}
	return &Modeller{runner: runner, runs: runs}
}

// ModelJob describes one automodel run.
type ModelJob struct {
	// AlignmentFile is a PIR alignment inside the job directory.
	AlignmentFile string
	// Templates are the template codes as they appear in the alignment.
	Templates []string
	// Sequence is the target code in the alignment.
	Sequence string
}

// Script renders the automodel script for job.
func (m *Modeller) Script(job ModelJob) string {
	quoted := make([]string, len(job.Templates))
	for i, t := range job.Templates {
		quoted[i] = strconv.Quote(t)
	}
	var b strings.Builder
	b.WriteString("from modeller import *\n")
	b.WriteString("from modeller.automodel import *\n")
	b.WriteString("env = environ()\n")
	b.WriteString("env.io.atom_files_directory = ['.']\n")
	fmt.Fprintf(&b, "a = automodel(env, alnfile=%s, knowns=(%s,), sequence=%s)\n",
		strconv.Quote(job.AlignmentFile), strings.Join(quoted, ", "), strconv.Quote(job.Sequence))
	b.WriteString("a.starting_model = 1\n")
	fmt.Fprintf(&b, "a.ending_model = %d\n", m.runs)
	b.WriteString("a.make()\n")
	return b.String()
}

// Build writes the script for job into dir, runs Modeller and returns the
// produced model files in name order.
func (m *Modeller) Build(ctx context.Context, dir string, job ModelJob) ([]string, error) {
	if job.AlignmentFile == "" || job.Sequence == "" || len(job.Templates) == 0 {
		return nil, domain.ModellerError{Reason: "alignment, sequence and templates are required"}
	}
	script := "model_" + job.Sequence + ".py"
	if err := os.WriteFile(filepath.Join(dir, script), []byte(m.Script(job)), 0o644); err != nil {
		return nil, fmt.Errorf("write modeller script: %w", err)
	}
	out, err := m.runner.Run(ctx, dir, ModellerBinary, script)
	if err != nil {
		return nil, domain.ModellerError{Reason: strings.TrimSpace(string(out) + "\n" + err.Error())}
	}
	logFile := filepath.Join(dir, strings.TrimSuffix(script, ".py")+".log")
	if data, err := os.ReadFile(logFile); err == nil {
		if line := firstErrorLine(string(data)); line != "" {
			return nil, domain.ModellerError{Reason: line}
		}
	}
	models, err := filepath.Glob(filepath.Join(dir, job.Sequence+".B9999*.pdb"))
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, domain.ModellerError{Reason: "no models written for " + job.Sequence}
	}
	sort.Strings(models)
	for i := range models {
		models[i] = filepath.Base(models[i])
	}
	return models, nil
}

// modellerErrorTag matches log prefixes such as "read_al_373E>".
var modellerErrorTag = regexp.MustCompile(`_\d+E>`)

func firstErrorLine(log string) string {
	for _, line := range strings.Split(log, "\n") {
		if modellerErrorTag.MatchString(line) || strings.HasPrefix(strings.TrimSpace(line), "Error") {
			return strings.TrimSpace(line)
		}
	}
	return ""
}
