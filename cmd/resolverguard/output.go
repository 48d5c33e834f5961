package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"sigs.k8s.io/yaml"
)

// Result types

// PlanResult is the result of a plan command.
type PlanResult struct {
	Template      string         `json:"template"`
	Mode          string         `json:"mode"`
	Scanned       int            `json:"scanned"`
	Guarded       int            `json:"guarded"`
	FieldsChanged int            `json:"fieldsChanged"`
	Resolvers     []ResolverInfo `json:"resolvers"`
	Errors        []string       `json:"errors,omitempty"`
}

// ResolverInfo describes one guard applied to one resolver.
type ResolverInfo struct {
	Resource  string   `json:"resource"`
	TypeName  string   `json:"typeName"`
	FieldName string   `json:"fieldName,omitempty"`
	Guard     string   `json:"guard"`
	Fields    []string `json:"fields,omitempty"`
	Unchanged []string `json:"unchanged,omitempty"`
	Skipped   []string `json:"skipped,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// InspectResult is the result of an inspect command.
type InspectResult struct {
	Resource  string      `json:"resource"`
	TypeName  string      `json:"typeName"`
	FieldName string      `json:"fieldName,omitempty"`
	Field     string      `json:"field"`
	Guards    []string    `json:"guards"`
	Missing   []string    `json:"missing,omitempty"`
	Blocks    []BlockInfo `json:"blocks,omitempty"`
	Body      string      `json:"body"`
}

// BlockInfo is a guard block found in a mapping template.
type BlockInfo struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// VersionResult is the result of a version command.
type VersionResult struct {
	Version string `json:"version"`
}

// outputResult outputs the result in the specified format.
func outputResult(result interface{}, format string) error {
	switch format {
	case "json":
		return outputJSON(result)
	case "yaml":
		return outputYAML(result)
	default:
		return outputTable(result)
	}
}

func outputJSON(result interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(result)
}

func outputYAML(result interface{}) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func outputTable(result interface{}) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	switch r := result.(type) {
	case PlanResult:
		return outputPlanTable(w, r)
	case InspectResult:
		return outputInspectTable(w, r)
	case VersionResult:
		fmt.Fprintf(w, "VERSION:\t%s\n", r.Version)
		return nil
	default:
		// Fall back to JSON for unknown types
		return outputJSON(result)
	}
}

func outputPlanTable(w *tabwriter.Writer, r PlanResult) error {
	fmt.Fprintf(w, "TEMPLATE:\t%s\n", r.Template)
	fmt.Fprintf(w, "MODE:\t%s\n", r.Mode)
	fmt.Fprintf(w, "RESOURCES:\t%d\n", r.Scanned)
	fmt.Fprintf(w, "GUARDED:\t%d\n", r.Guarded)
	fmt.Fprintf(w, "FIELDS CHANGED:\t%d\n\n", r.FieldsChanged)

	if len(r.Resolvers) > 0 {
		fmt.Fprintln(w, "RESOURCE\tTYPE\tFIELD\tGUARD\tSTATUS")
		for _, res := range r.Resolvers {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				res.Resource, res.TypeName, res.FieldName, res.Guard, resolverStatus(res))
		}
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "\nERRORS:")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "- %s\n", e)
		}
	}

	return nil
}

// resolverStatus summarizes a ResolverInfo for table output.
func resolverStatus(r ResolverInfo) string {
	if r.Error != "" {
		return "error"
	}
	var parts []string
	if len(r.Fields) > 0 {
		parts = append(parts, "guarded "+strings.Join(r.Fields, ","))
	}
	if len(r.Unchanged) > 0 {
		parts = append(parts, "present "+strings.Join(r.Unchanged, ","))
	}
	if len(r.Skipped) > 0 {
		parts = append(parts, "skipped "+strings.Join(r.Skipped, ","))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "; ")
}

func outputInspectTable(w *tabwriter.Writer, r InspectResult) error {
	fmt.Fprintf(w, "RESOURCE:\t%s (%s.%s)\n", r.Resource, r.TypeName, r.FieldName)
	fmt.Fprintf(w, "FIELD:\t%s\n", r.Field)
	fmt.Fprintf(w, "GUARDS:\t%s\n", joinOrNone(r.Guards))
	if len(r.Missing) > 0 {
		fmt.Fprintf(w, "MISSING:\t%s\n", strings.Join(r.Missing, ","))
	}

	for i, b := range r.Blocks {
		fmt.Fprintf(w, "\n%d. %s\n", i+1, b.Name)
		fmt.Fprintln(w, b.Text)
	}

	fmt.Fprintln(w, "\nBODY:")
	fmt.Fprintln(w, r.Body)
	return nil
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}
