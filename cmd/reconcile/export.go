package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dusk-indust/reconcile/internal/export"
)

func runExport(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	asYAML := fs.Bool("yaml", false, "write YAML instead of JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("usage: reconcile export [--yaml] <output-dir>")
	}

	data, err := export.ExportRun(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if *asYAML {
		return export.WriteYAML(stdout, data)
	}
	return export.WriteJSON(stdout, data)
}
