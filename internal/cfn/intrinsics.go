package cfn

import (
	"fmt"
	"strings"

	yamlv3 "gopkg.in/yaml.v3"
)

// shortForms maps YAML short-form tags to their long-form keys.
var shortForms = map[string]string{
	"Ref":          "Ref",
	"Condition":    "Condition",
	"GetAtt":       "Fn::GetAtt",
	"Sub":          "Fn::Sub",
	"Join":         "Fn::Join",
	"Select":       "Fn::Select",
	"Split":        "Fn::Split",
	"If":           "Fn::If",
	"Equals":       "Fn::Equals",
	"And":          "Fn::And",
	"Or":           "Fn::Or",
	"Not":          "Fn::Not",
	"FindInMap":    "Fn::FindInMap",
	"Base64":      "Fn::Base64",
	"Cidr":         "Fn::Cidr",
	"GetAZs":       "Fn::GetAZs",
	"ImportValue":  "Fn::ImportValue",
	"Length":       "Fn::Length",
	"ToJsonString": "Fn::ToJsonString",
	"Transform":    "Fn::Transform",
}

// expandShortForm rewrites short-form intrinsic tags into long-form maps,
// e.g. "!Ref Bucket" becomes {Ref: Bucket}. Input without local tags is
// returned as is.
func expandShortForm(data []byte) ([]byte, error) {
	var root yamlv3.Node
	if err := yamlv3.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	changed, err := expandNode(&root)
	if err != nil {
		return nil, err
	}
	if !changed {
		return data, nil
	}
	return yamlv3.Marshal(&root)
}

// expandNode converts tagged nodes depth-first and reports whether any were found.
func expandNode(n *yamlv3.Node) (bool, error) {
	changed := false
	for _, child := range n.Content {
		c, err := expandNode(child)
		if err != nil {
			return false, err
		}
		changed = changed || c
	}

	if !strings.HasPrefix(n.Tag, "!") || strings.HasPrefix(n.Tag, "!!") {
		return changed, nil
	}

	name := strings.TrimPrefix(n.Tag, "!")
	key, ok := shortForms[name]
	if !ok {
		return false, fmt.Errorf("line %d: unsupported YAML tag %s", n.Line, n.Tag)
	}

	value := *n
	value.Tag = defaultTag(value.Kind)
	value.Style &^= yamlv3.TaggedStyle
	if name == "GetAtt" && value.Kind == yamlv3.ScalarNode {
		resource, attr, found := strings.Cut(value.Value, ".")
		if !found {
			return false, fmt.Errorf("line %d: !GetAtt %q must be Resource.Attribute", n.Line, value.Value)
		}
		value = yamlv3.Node{
			Kind: yamlv3.SequenceNode,
			Tag:  "!!seq",
			Content: []*yamlv3.Node{
				{Kind: yamlv3.ScalarNode, Tag: "!!str", Value: resource},
				{Kind: yamlv3.ScalarNode, Tag: "!!str", Value: attr},
			},
		}
	}

	*n = yamlv3.Node{
		Kind: yamlv3.MappingNode,
		Tag:  "!!map",
		Line: n.Line,
		Content: []*yamlv3.Node{
			{Kind: yamlv3.ScalarNode, Tag: "!!str", Value: key},
			&value,
		},
	}
	return true, nil
}

func defaultTag(kind yamlv3.Kind) string {
	switch kind {
	case yamlv3.MappingNode:
		return "!!map"
	case yamlv3.SequenceNode:
		return "!!seq"
	default:
		return "!!str"
	}
}
