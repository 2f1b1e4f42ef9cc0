package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"elaspicdb/docs/schema"
	"elaspicdb/internal/config"
	"elaspicdb/internal/core"
	"elaspicdb/internal/toolchain"
	"elaspicdb/internal/uniprot"
)

type cli struct {
	stdout      io.Writer
	stderr      io.Writer
	configPath  string
	trace       bool
	metricsFile string
	registry    *prometheus.Registry
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:          "elaspicdb",
		Short:        "Manage the ELASPIC precalculated database and archive",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to the configuration file")
	root.PersistentFlags().BoolVar(&c.trace, "trace", false, "write JSON trace lines to stderr")
	root.PersistentFlags().StringVar(&c.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file when the command ends")
	_ = root.MarkPersistentFlagRequired("config")

	root.AddCommand(
		c.initCmd(),
		c.loadTSVCmd(),
		c.loadArchiveCmd(),
		c.domainsCmd(),
		c.contactsCmd(),
		c.uniprotDomainsCmd(),
		c.sequenceCmd(),
		c.checkToolsCmd(),
		c.alignCmd(),
		c.proveanCmd(),
	)
	return root
}

// open loads the configuration and assembles a service for one command.
func (c *cli) open(ctx context.Context) (*core.Service, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))
	reg := prometheus.NewRegistry()
	c.registry = reg
	opts := []core.Option{
		core.WithLogger(logger),
		core.WithMetricsRecorder(core.NewPrometheusMetricsRecorder(reg)),
		core.WithSequenceFetcher(uniprot.NewClient()),
	}
	if c.trace {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(c.stderr)))
	}
	return core.Open(ctx, cfg, reg, opts...)
}

func (c *cli) withService(fn func(ctx context.Context, svc *core.Service, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := c.open(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = svc.Close() }()
		err = fn(ctx, svc, args)
		if werr := c.writeMetrics(); werr != nil && err == nil {
			err = werr
		}
		return err
	}
}

// writeMetrics dumps the command's registry for the node exporter textfile
// collector.
func (c *cli) writeMetrics() error {
	if c.metricsFile == "" || c.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(c.metricsFile, c.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) initCmd() *cobra.Command {
	var clearTables bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database tables",
		Args:  cobra.NoArgs,
		RunE: c.withService(func(ctx context.Context, svc *core.Service, _ []string) error {
			if err := svc.CreateSchema(ctx, clearTables); err != nil {
				return err
			}
			return c.print(map[string]any{"schema_version": schema.Version(), "dialects": schema.Describe()})
		}),
	}
	cmd.Flags().BoolVar(&clearTables, "clear", false, "drop every table except uniprot_sequence before creating")
	return cmd
}

func (c *cli) loadTSVCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load-tsv <dir>",
		Short: "Populate the base tables from tab-separated dumps",
		Args:  cobra.ExactArgs(1),
		RunE: c.withService(func(ctx context.Context, svc *core.Service, args []string) error {
			stats, err := svc.LoadFromTSV(ctx, args[0])
			if err != nil {
				return err
			}
			return c.print(stats)
		}),
	}
}

func (c *cli) loadArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load-archive",
		Short: "Rebuild template, model and mutation rows from archived records",
		Args:  cobra.NoArgs,
		RunE: c.withService(func(ctx context.Context, svc *core.Service, _ []string) error {
			stats, err := svc.LoadFromArchive(ctx)
			if err != nil {
				return err
			}
			return c.print(stats)
		}),
	}
}

func (c *cli) domainsCmd() *cobra.Command {
	var subdomains bool
	cmd := &cobra.Command{
		Use:   "domains <pfam...>",
		Short: "List structural domains by Pfam name",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.withService(func(ctx context.Context, svc *core.Service, args []string) error {
			domains, err := svc.GetDomain(ctx, args, subdomains)
			if err != nil {
				return err
			}
			return c.print(domains)
		}),
	}
	cmd.Flags().BoolVar(&subdomains, "subdomains", false, "also match X_* and +-joined names")
	return cmd
}

func (c *cli) contactsCmd() *cobra.Command {
	var (
		pfam1, pfam2 []string
		subdomains   bool
	)
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "List domain contacts between two Pfam families",
		Args:  cobra.NoArgs,
		RunE: c.withService(func(ctx context.Context, svc *core.Service, _ []string) error {
			forward, reverse, err := svc.GetDomainContact(ctx, pfam1, pfam2, subdomains)
			if err != nil {
				return err
			}
			return c.print(map[string]any{"forward": forward, "reverse": reverse})
		}),
	}
	cmd.Flags().StringSliceVar(&pfam1, "pfam1", nil, "first Pfam names")
	cmd.Flags().StringSliceVar(&pfam2, "pfam2", nil, "second Pfam names")
	cmd.Flags().BoolVar(&subdomains, "subdomains", false, "also match X_* and +-joined names")
	_ = cmd.MarkFlagRequired("pfam1")
	_ = cmd.MarkFlagRequired("pfam2")
	return cmd
}

func (c *cli) uniprotDomainsCmd() *cobra.Command {
	var copyData, pairs bool
	cmd := &cobra.Command{
		Use:   "uniprot-domains <uniprot_id>",
		Short: "List the modelled domains of a protein",
		Args:  cobra.ExactArgs(1),
		RunE: c.withService(func(ctx context.Context, svc *core.Service, args []string) error {
			domains, err := svc.GetUniprotDomain(ctx, args[0], copyData)
			if err != nil {
				return err
			}
			if !pairs {
				return c.print(domains)
			}
			domainPairs, err := svc.GetUniprotDomainPair(ctx, args[0], copyData)
			if err != nil {
				return err
			}
			return c.print(map[string]any{"domains": domains, "pairs": domainPairs})
		}),
	}
	cmd.Flags().BoolVar(&copyData, "copy-data", false, "restore archived files into the temp directory")
	cmd.Flags().BoolVar(&pairs, "pairs", false, "include domain pairs")
	return cmd
}

func (c *cli) sequenceCmd() *cobra.Command {
	var checkExternal bool
	cmd := &cobra.Command{
		Use:   "sequence <uniprot_id>",
		Short: "Show a protein sequence",
		Args:  cobra.ExactArgs(1),
		RunE: c.withService(func(ctx context.Context, svc *core.Service, args []string) error {
			seq, err := svc.GetUniprotSequence(ctx, args[0], checkExternal)
			if err != nil {
				return err
			}
			if seq == nil {
				return fmt.Errorf("sequence %s not found", args[0])
			}
			return c.print(seq)
		}),
	}
	cmd.Flags().BoolVar(&checkExternal, "check-external", false, "fetch from UniProt when missing locally")
	return cmd
}

type toolStatus struct {
	Name  string `json:"name"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

func (c *cli) checkToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-tools",
		Short: "Report which external programs resolve from bin_path",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, runner, err := c.tools()
			if err != nil {
				return err
			}
			var (
				statuses []toolStatus
				missing  int
			)
			for _, name := range []string{toolchain.TcoffeeBinary, toolchain.ProveanBinary, toolchain.FoldXBinary, toolchain.ModellerBinary} {
				st := toolStatus{Name: name}
				if p, err := runner.LookPath(name); err != nil {
					st.Error = err.Error()
					missing++
				} else {
					st.Path = p
				}
				statuses = append(statuses, st)
			}
			if err := c.print(statuses); err != nil {
				return err
			}
			if missing > 0 {
				return fmt.Errorf("%d external programs not found", missing)
			}
			return nil
		},
	}
}

// tools loads the configuration and a runner resolving programs from bin_path.
func (c *cli) tools() (*config.Config, *toolchain.Runner, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, toolchain.NewRunner(cfg.BinPath), nil
}

func (c *cli) alignCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "align <fasta> <alignment>",
		Short: "Align sequences with T-Coffee into a Clustal file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, runner, err := c.tools()
			if err != nil {
				return err
			}
			in, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			out, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}
			if err := toolchain.NewTcoffee(runner, mode, cfg.NCores).Align(cmd.Context(), filepath.Dir(out), in, out); err != nil {
				return err
			}
			return c.print(map[string]string{"alignment": out})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "T-Coffee mode, e.g. expresso")
	return cmd
}

func (c *cli) proveanCmd() *cobra.Command {
	var supset string
	cmd := &cobra.Command{
		Use:   "provean <fasta> <mutation...>",
		Short: "Score substitutions with Provean",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, runner, err := c.tools()
			if err != nil {
				return err
			}
			fasta, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if supset == "" {
				supset = fasta + ".supset"
			}
			scores, err := toolchain.NewProvean(runner, cfg.BlastDBPath, cfg.NCores).Score(cmd.Context(), filepath.Dir(fasta), fasta, supset, args[1:])
			if err != nil {
				return err
			}
			return c.print(scores)
		},
	}
	cmd.Flags().StringVar(&supset, "supset", "", "supporting set to reuse or create (default <fasta>.supset)")
	return cmd
}
