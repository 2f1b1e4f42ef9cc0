package toolchain

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"elaspicdb/pkg/domain"
)

// TcoffeeBinary is the executable name of the T-Coffee aligner.
const TcoffeeBinary = "t_coffee"

// Tcoffee aligns sequence files into Clustal alignments.
type Tcoffee struct {
	runner *Runner
	mode   string
	nCores int
}

// NewTcoffee returns an aligner. mode is passed as -mode when set ("expresso"
// for structure-aware alignments).
func NewTcoffee(runner *Runner, mode string, nCores int) *Tcoffee {
	if nCores < 1 {
		nCores = 1
	}
	return &Tcoffee{runner: runner, mode: mode, nCores: nCores}
}

// Align aligns inFile (FASTA, relative to dir or absolute) into outFile.
// The alignment is written in Clustal format.
func (t *Tcoffee) Align(ctx context.Context, dir, inFile, outFile string) error {
	args := []string{inFile, "-output", "clustalw_aln", "-outfile", outFile, "-n_core", strconv.Itoa(t.nCores), "-quiet"}
	if t.mode != "" {
		args = append(args, "-mode", t.mode)
	}
	out, err := t.runner.Run(ctx, dir, TcoffeeBinary, args...)
	if err != nil {
		return classifyTcoffee(inFile, string(out), err.Error())
	}
	if !fileExists(resolve(dir, outFile)) {
		return domain.TcoffeeError{Message: "no alignment written", Output: string(out), AlignInFile: inFile}
	}
	return nil
}

func classifyTcoffee(inFile, output, message string) error {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "blast"):
		return domain.TcoffeeBlastError{Message: message, Output: output, AlignInFile: inFile}
	case strings.Contains(lower, "pdb") && (strings.Contains(lower, "not a valid") || strings.Contains(lower, "could not")):
		return domain.TcoffeePDBIDError{Message: message, Output: output, AlignInFile: inFile}
	default:
		return domain.TcoffeeError{Message: message, Output: output, AlignInFile: inFile}
	}
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) || dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}
