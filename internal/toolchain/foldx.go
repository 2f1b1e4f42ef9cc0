package toolchain

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"elaspicdb/pkg/domain"
)

// FoldXBinary is the executable name of FoldX.
const FoldXBinary = "foldx"

// FoldX builds mutant structures and reports their stability change.
type FoldX struct {
	runner *Runner
	water  string
	runs   int
}

// NewFoldX returns a FoldX wrapper. water is the FoldX water mode
// (e.g. "-IGNORE"); runs is the number of BuildModel repetitions.
func NewFoldX(runner *Runner, water string, runs int) *FoldX {
	if runs < 1 {
		runs = 1
	}
	return &FoldX{runner: runner, water: water, runs: runs}
}

// BuildModelResult is the outcome of one BuildModel job.
type BuildModelResult struct {
	// DDG is the mean total-energy difference over all runs.
	DDG float64
	// Mutants lists the mutant structure files, one per run.
	Mutants []string
	// WildTypes lists the matching wild-type structure files.
	WildTypes []string
}

// BuildModel mutates pdbFile (a file inside dir) with a FoldX mutant code
// such as "RA175H".
func (f *FoldX) BuildModel(ctx context.Context, dir, pdbFile, mutant string) (BuildModelResult, error) {
	name := strings.TrimSuffix(filepath.Base(pdbFile), filepath.Ext(pdbFile))
	listFile := "individual_list_" + name + ".txt"
	if err := os.WriteFile(filepath.Join(dir, listFile), []byte(mutant+";\n"), 0o644); err != nil {
		return BuildModelResult{}, fmt.Errorf("write mutant list: %w", err)
	}
	defer func() { _ = os.Remove(filepath.Join(dir, listFile)) }()

	args := []string{
		"--command=BuildModel",
		"--pdb=" + filepath.Base(pdbFile),
		"--mutant-file=" + listFile,
		"--numberOfRuns=" + strconv.Itoa(f.runs),
	}
	if f.water != "" {
		args = append(args, "--water="+strings.TrimPrefix(f.water, "-"))
	}
	out, err := f.runner.Run(ctx, dir, FoldXBinary, args...)
	if err != nil {
		return BuildModelResult{}, domain.FoldXError{Reason: string(out)}
	}
	if !strings.Contains(string(out), "run OK") {
		return BuildModelResult{}, domain.FoldXError{Reason: string(out)}
	}

	diff := filepath.Join(dir, "Dif_"+name+".fxout")
	ddg, err := readDifEnergy(diff)
	if err != nil {
		return BuildModelResult{}, domain.FoldXError{Reason: err.Error()}
	}
	res := BuildModelResult{DDG: ddg}
	for i := 1; i <= f.runs; i++ {
		mut := fmt.Sprintf("%s_1_%d.pdb", name, i-1)
		wt := fmt.Sprintf("WT_%s_1_%d.pdb", name, i-1)
		if f.runs == 1 {
			mut = name + "_1.pdb"
			wt = "WT_" + name + "_1.pdb"
		}
		res.Mutants = append(res.Mutants, mut)
		res.WildTypes = append(res.WildTypes, wt)
	}
	return res, nil
}

// readDifEnergy averages the "total energy" column of a Dif_*.fxout table.
func readDifEnergy(path string) (float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("foldx output: %w", err)
	}
	defer func() { _ = file.Close() }()

	col := -1
	var sum float64
	var n int
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		fields := strings.Split(sc.Text(), "\t")
		if col < 0 {
			for i, f := range fields {
				if strings.EqualFold(strings.TrimSpace(f), "total energy") {
					col = i
				}
			}
			continue
		}
		if len(fields) <= col || strings.TrimSpace(fields[0]) == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[col]), 64)
		if err != nil {
			return 0, fmt.Errorf("foldx energy %q: %w", fields[col], err)
		}
		sum += v
		n++
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("no energies in %s", filepath.Base(path))
	}
	return sum / float64(n), nil
}
