package toolchain

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"elaspicdb/pkg/domain"
)

// ProveanBinary is the executable name of the Provean driver script.
const ProveanBinary = "provean.sh"

const proveanVariantsFile = "provean_variants.txt"

// Provean scores amino-acid substitutions against a supporting set of
// homologous sequences.
type Provean struct {
	runner  *Runner
	blastDB string
	nCores  int
}

// NewProvean returns a scorer searching blastDB for homologs.
func NewProvean(runner *Runner, blastDB string, nCores int) *Provean {
	if nCores < 1 {
		nCores = 1
	}
	return &Provean{runner: runner, blastDB: blastDB, nCores: nCores}
}

// Score runs Provean on the query FASTA for the given mutations (e.g. R175H).
// When supset exists it is reused, otherwise Provean builds and saves it there.
func (p *Provean) Score(ctx context.Context, dir, fastaFile, supset string, mutations []string) (map[string]float64, error) {
	if len(mutations) == 0 {
		return map[string]float64{}, nil
	}
	variants := resolve(dir, proveanVariantsFile)
	if err := os.WriteFile(variants, []byte(strings.Join(mutations, "\n")+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("write provean variants: %w", err)
	}
	defer func() { _ = os.Remove(variants) }()

	args := []string{"-q", fastaFile, "-v", proveanVariantsFile, "--num_threads", strconv.Itoa(p.nCores)}
	if p.blastDB != "" {
		args = append(args, "-d", p.blastDB)
	}
	if fileExists(resolve(dir, supset)) {
		args = append(args, "--supporting_set", supset)
	} else {
		args = append(args, "--save_supporting_set", supset)
	}
	out, err := p.runner.Run(ctx, dir, ProveanBinary, args...)
	if err != nil {
		return nil, domain.ProveanError{Output: string(out)}
	}
	scores, err := ParseProveanScores(string(out))
	if err != nil {
		return nil, domain.ProveanError{Output: string(out)}
	}
	for _, m := range mutations {
		if _, ok := scores[m]; !ok {
			return nil, domain.ProveanError{Output: fmt.Sprintf("no score for %s\n%s", m, out)}
		}
	}
	return scores, nil
}

// ParseProveanScores reads the "# VARIATION<TAB>SCORE" table of a Provean run.
func ParseProveanScores(output string) (map[string]float64, error) {
	scores := make(map[string]float64)
	inTable := false
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "# VARIATION") {
			inTable = true
			continue
		}
		if !inTable || line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed provean score line %q", line)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("provean score %q: %w", fields[1], err)
		}
		scores[fields[0]] = v
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !inTable {
		return nil, fmt.Errorf("provean output has no score table")
	}
	return scores, nil
}
