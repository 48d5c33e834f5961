package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/capbase/resolverguard/internal/cfn"
)

var (
	applyFile    string
	applyOut     string
	applyInPlace bool
	applyFormat  string
)

func applyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Write a guarded copy of a template",
		Long: `Add impersonation guards to every Query and Mutation resolver in a template.

Examples:
  # Print the guarded template to stdout
  resolverguard apply -f build/stacks/Widget.json

  # Rewrite the file where it is
  resolverguard apply -f build/stacks/Widget.json --in-place

  # Read stdin, write YAML to a file
  cat Widget.json | resolverguard apply -f - --out Widget.yaml --format yaml`,
		RunE: runApply,
	}

	cmd.Flags().StringVarP(&applyFile, "filename", "f", "", "Template file to rewrite, or - for stdin (required)")
	cmd.Flags().StringVar(&applyOut, "out", "-", "Where to write the result, - for stdout")
	cmd.Flags().BoolVar(&applyInPlace, "in-place", false, "Overwrite the input file")
	cmd.Flags().StringVar(&applyFormat, "format", "", "Output template format: json or yaml (default: same as input)")
	cmd.MarkFlagRequired("filename")

	return cmd
}

func runApply(cmd *cobra.Command, args []string) error {
	if applyInPlace && applyFile == "-" {
		return errors.New("--in-place cannot be used with stdin")
	}
	if applyInPlace && cmd.Flags().Changed("out") {
		return errors.New("--in-place and --out are mutually exclusive")
	}

	format, err := cfn.ParseFormat(applyFormat)
	if err != nil {
		return err
	}

	logger, rw, err := newRunner(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tmpl, inFormat, err := cfn.ReadFile(applyFile)
	if err != nil {
		return err
	}
	if format == "" {
		format = inFormat
	}

	out, report, err := rw.Rewrite(context.Background(), tmpl)
	if err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", applyFile, err)
	}

	dest := applyOut
	if applyInPlace {
		dest = applyFile
	}
	if dest == "-" {
		err = cfn.Write(os.Stdout, out, format)
	} else {
		err = cfn.WriteFile(dest, out, format)
	}
	if err != nil {
		return err
	}

	logger.Info("Guarded template written",
		zap.String("input", applyFile),
		zap.String("output", dest),
		zap.String("format", string(format)),
		zap.Int("resolvers", len(report.Resources())),
	)
	return nil
}
