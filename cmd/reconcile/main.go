package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/dusk-indust/reconcile/internal/config"
	"github.com/dusk-indust/reconcile/internal/mcptools"
	"github.com/dusk-indust/reconcile/internal/orchestrator"
	"github.com/dusk-indust/reconcile/internal/resolve"
)

// CLI flags parsed from command line.
type cliFlags struct {
	OutputDir        string
	GraphDB          string
	ConfigDir        string
	Threads          int
	MinClusterLength int
	MinClusterDepth  float64
	MinLinkSupport   float64
	MaxBubbleDepth   int
	AssemblyPriority string
	TieBreak         string
	Quiet            bool
	Verbose          bool
	ServeMCP         bool
	MCPAddr          string
	Version          bool
}

// version is set by goreleaser at build time.
var version = "dev"

const usage = `usage:
  reconcile [flags] <assembly.gfa>...          build a consensus from several assemblies
  reconcile decompress [-o dir] <assembly.gfa>... rebuild every input contig as FASTA
  reconcile diagram [--graph-db dir] [<assembly.gfa>...]
  reconcile export [--yaml] <output-dir>
  reconcile status [dir]
  reconcile --serve-mcp [--mcp-addr host:port]
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "decompress":
			return runDecompress(args[1:], stdout)
		case "diagram":
			return runDiagram(ctx, args[1:], stdout)
		case "export":
			return runExport(args[1:], stdout)
		case "status":
			return runStatus(args[1:], stdout)
		}
	}

	var flags cliFlags

	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&flags.OutputDir, "output-dir", "", "directory for the consensus and report files")
	fs.StringVar(&flags.GraphDB, "graph-db", "", "persist the graph to a new Kuzu database at this path")
	fs.StringVar(&flags.ConfigDir, "config-dir", ".", "directory holding reconcile.yml")
	fs.IntVar(&flags.Threads, "threads", 0, "clusters resolved in parallel (default GOMAXPROCS)")
	fs.IntVar(&flags.MinClusterLength, "min-cluster-length", 0, "exclude clusters with less unique sequence (bp)")
	fs.Float64Var(&flags.MinClusterDepth, "min-cluster-depth", 0, "exclude clusters with a lower mean path depth")
	fs.Float64Var(&flags.MinLinkSupport, "min-link-support", 0, "fraction of endpoint depth an edge needs to join clusters")
	fs.IntVar(&flags.MaxBubbleDepth, "max-bubble-depth", 0, "segments searched for a bubble to reconverge")
	fs.StringVar(&flags.AssemblyPriority, "priority", "", "comma-separated assemblies preferred as backbone")
	fs.StringVar(&flags.TieBreak, "tie-break", "", "bubble tie-break order: depth-first or identity-first")
	fs.BoolVar(&flags.Quiet, "quiet", false, "suppress progress output")
	fs.BoolVar(&flags.Verbose, "verbose", false, "log every bubble decision")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "run as MCP server on stdio")
	fs.StringVar(&flags.MCPAddr, "mcp-addr", "", "serve MCP over streamable HTTP on this address instead of stdio")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Fprintln(stdout, version)
		return nil
	}

	cfg, err := buildConfig(flags)
	if err != nil {
		return err
	}

	if flags.ServeMCP || flags.MCPAddr != "" {
		return serveMCP(ctx, cfg, flags.MCPAddr)
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no input assemblies given")
	}
	return runPipeline(ctx, cfg, fs.Args(), stdout)
}

// buildConfig layers reconcile.yml over the defaults and command-line flags
// over both.
func buildConfig(flags cliFlags) (orchestrator.Config, error) {
	pc, err := config.Load(flags.ConfigDir)
	if err != nil {
		return orchestrator.Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg, err := orchestrator.DefaultConfig().Merge(pc)
	if err != nil {
		return orchestrator.Config{}, fmt.Errorf("load config: %w", err)
	}

	if flags.OutputDir != "" {
		cfg.OutputDir = flags.OutputDir
	}
	if flags.GraphDB != "" {
		cfg.GraphDB = flags.GraphDB
	}
	if flags.Threads > 0 {
		cfg.Threads = flags.Threads
	}
	if flags.MinClusterLength > 0 {
		cfg.MinClusterLength = flags.MinClusterLength
	}
	if flags.MinClusterDepth > 0 {
		cfg.MinClusterDepth = flags.MinClusterDepth
	}
	if flags.MinLinkSupport > 0 {
		cfg.MinLinkSupport = flags.MinLinkSupport
	}
	if flags.MaxBubbleDepth > 0 {
		cfg.MaxBubbleDepth = flags.MaxBubbleDepth
	}
	if flags.AssemblyPriority != "" {
		cfg.AssemblyPriority = splitList(flags.AssemblyPriority)
	}
	if flags.TieBreak != "" {
		tb, err := resolve.ParseTieBreak(flags.TieBreak)
		if err != nil {
			return orchestrator.Config{}, err
		}
		cfg.TieBreak = tb
	}
	cfg.Quiet = cfg.Quiet || flags.Quiet
	cfg.Verbose = cfg.Verbose || flags.Verbose

	return cfg, cfg.Validate()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func serveMCP(ctx context.Context, cfg orchestrator.Config, addr string) error {
	svc := mcptools.NewConsensusService(cfg, mcpStoreOpener())
	defer svc.Close()

	if addr != "" {
		return mcptools.RunMCPServer(ctx, svc, addr)
	}
	return mcptools.RunMCPServerStdio(ctx, mcptools.NewConsensusMCPServer(svc))
}
