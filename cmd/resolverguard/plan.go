package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/capbase/resolverguard/internal/cfn"
	"github.com/capbase/resolverguard/internal/rewriter"
)

var (
	planFile string
)

func planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show which resolvers would be guarded",
		Long: `Run the rewrite without writing anything and report the result.

Examples:
  # Table of guarded resolvers
  resolverguard plan -f build/stacks/Widget.json

  # As JSON
  resolverguard plan -f build/stacks/Widget.json -o json`,
		RunE: runPlan,
	}

	cmd.Flags().StringVarP(&planFile, "filename", "f", "", "Template file to check, or - for stdin (required)")
	cmd.MarkFlagRequired("filename")

	return cmd
}

func runPlan(cmd *cobra.Command, args []string) error {
	logger, rw, err := newRunner(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tmpl, _, err := cfn.ReadFile(planFile)
	if err != nil {
		return err
	}

	_, report, rewriteErr := rw.Rewrite(context.Background(), tmpl)
	if report == nil {
		return rewriteErr
	}

	result := buildPlanResult(planFile, report, rewriteErr)
	if err := outputResult(result, outputFmt); err != nil {
		return err
	}
	if rewriteErr != nil {
		return fmt.Errorf("%d resolver(s) cannot be guarded", len(multierr.Errors(rewriteErr)))
	}
	return nil
}

func buildPlanResult(file string, report *rewriter.Report, rewriteErr error) PlanResult {
	result := PlanResult{
		Template: file,
		Mode:     string(report.Mode),
		Scanned:  report.Scanned,
	}
	for _, c := range report.Changes {
		result.Resolvers = append(result.Resolvers, ResolverInfo{
			Resource:  c.Resource,
			TypeName:  c.TypeName,
			FieldName: c.FieldName,
			Guard:     c.Guard,
			Fields:    c.Fields,
			Unchanged: c.Unchanged,
			Skipped:   c.Skipped,
			Error:     c.Error,
		})
		result.FieldsChanged += len(c.Fields)
	}
	result.Guarded = len(report.Resources())
	for _, e := range multierr.Errors(rewriteErr) {
		result.Errors = append(result.Errors, e.Error())
	}
	return result
}
