// Package cfn reads and writes CloudFormation templates in JSON or YAML.
//
// Numbers are kept as json.Number so values pass through unchanged. YAML
// short-form intrinsics (!Ref, !GetAtt, !Sub, ...) are expanded to their long
// form on read; any other local tag is rejected.
package cfn

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/capbase/resolverguard/internal/types"
)

// Format is a template serialization format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a flag value into a Format. Empty means "same as input".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "":
		return "", nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown template format %q", s)
	}
}

// DetectFormat guesses the format from the first non-space byte.
func DetectFormat(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

// Decode parses a template and reports the format it was written in.
func Decode(data []byte) (*types.Template, Format, error) {
	format := DetectFormat(data)
	obj := map[string]interface{}{}
	var err error
	if format == FormatJSON {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&obj)
	} else {
		data, err = expandShortForm(data)
		if err == nil {
			err = yaml.Unmarshal(data, &obj, useNumber)
		}
	}
	if err != nil {
		return nil, format, fmt.Errorf("failed to parse %s template: %w", format, err)
	}
	if _, ok := obj["Resources"]; !ok {
		return nil, format, fmt.Errorf("template has no Resources section")
	}
	return types.NewTemplate(obj), format, nil
}

// useNumber keeps YAML numbers as json.Number.
func useNumber(d *json.Decoder) *json.Decoder {
	d.UseNumber()
	return d
}

// Encode serializes a template. JSON is indented with two spaces and ends with a newline.
func Encode(tmpl *types.Template, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(tmpl.Object)
	case FormatJSON, "":
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		// Mapping templates are full of <, > and & in comparisons.
		enc.SetEscapeHTML(false)
		if err := enc.Encode(tmpl.Object); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown template format %q", format)
	}
}

// Read decodes a template from r.
func Read(r io.Reader) (*types.Template, Format, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read template: %w", err)
	}
	return Decode(data)
}

// ReadFile decodes a template from path. "-" reads stdin.
func ReadFile(path string) (*types.Template, Format, error) {
	if path == "-" {
		return Read(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read template: %w", err)
	}
	return Decode(data)
}

// Write encodes tmpl to w.
func Write(w io.Writer, tmpl *types.Template, format Format) error {
	data, err := Encode(tmpl, format)
	if err != nil {
		return fmt.Errorf("failed to encode template: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// WriteFile encodes tmpl to path, keeping the mode of an existing file.
func WriteFile(path string, tmpl *types.Template, format Format) error {
	data, err := Encode(tmpl, format)
	if err != nil {
		return fmt.Errorf("failed to encode template: %w", err)
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	return nil
}
