package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/capbase/resolverguard/internal/cfn"
	"github.com/capbase/resolverguard/internal/guards"
	"github.com/capbase/resolverguard/internal/mapping"
	"github.com/capbase/resolverguard/internal/types"
)

var (
	inspectFile     string
	inspectResource string
	inspectField    string
)

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the guard blocks in front of a resolver's mapping template",
		Long: `Split a resolver's mapping template into guard blocks and the original body.

Examples:
  # Request template of a resolver
  resolverguard inspect -f Widget.json --resource QuerylistWidgetsResolver

  # Response template as YAML
  resolverguard inspect -f Widget.json --resource QuerylistWidgetsResolver --field ResponseMappingTemplate -o yaml`,
		RunE: runInspect,
	}

	cmd.Flags().StringVarP(&inspectFile, "filename", "f", "", "Template file, or - for stdin (required)")
	cmd.Flags().StringVar(&inspectResource, "resource", "", "Logical name of the resolver resource (required)")
	cmd.Flags().StringVar(&inspectField, "field", types.FieldRequestMappingTemplate, "Mapping template property to inspect")
	cmd.MarkFlagRequired("filename")
	cmd.MarkFlagRequired("resource")

	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	tmpl, _, err := cfn.ReadFile(inspectFile)
	if err != nil {
		return err
	}

	result, err := buildInspectResult(tmpl, inspectResource, inspectField)
	if err != nil {
		return err
	}
	return outputResult(result, outputFmt)
}

func buildInspectResult(tmpl *types.Template, resource, field string) (InspectResult, error) {
	res := tmpl.Resource(resource)
	if res == nil {
		return InspectResult{}, fmt.Errorf("resource %q not found", resource)
	}
	if !res.IsResolver() {
		return InspectResult{}, fmt.Errorf("resource %q is %s, not %s", resource, res.Type(), types.ResourceTypeResolver)
	}

	src, err := res.StringProperty(field)
	if err != nil {
		return InspectResult{}, fmt.Errorf("cannot inspect: %w", err)
	}

	doc := mapping.Parse(src, guards.BlockNames()...)
	result := InspectResult{
		Resource:  resource,
		TypeName:  string(res.TypeName()),
		FieldName: res.FieldName(),
		Field:     field,
		Guards:    doc.BlockNames(),
		Missing:   missingGuards(res, field, doc),
		Body:      doc.Body,
	}
	for _, b := range doc.Blocks {
		result.Blocks = append(result.Blocks, BlockInfo{Name: b.Name, Text: b.Text})
	}
	return result, nil
}

// missingGuards lists the blocks that apply to field of res but are absent
// from doc.
func missingGuards(res *types.Resource, field string, doc mapping.Document) []string {
	policy := guards.DefaultPolicy()
	var missing []string
	for _, g := range []types.Guard{guards.NewReadGuard(policy), guards.NewWriteGuard(policy)} {
		if !g.Matches(res) || !slices.Contains(g.Fields(), field) {
			continue
		}
		if name := g.Block().Name; !doc.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}
