// Package testutil provides shared test helpers for the resolverguard project.
// Import this in test files to avoid duplicating fixture loading, resource builders, etc.
package testutil

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/capbase/resolverguard/internal/types"
)

// LoadFixture reads a JSON or YAML template file.
// Fails the test immediately if the file can't be read or parsed.
func LoadFixture(t *testing.T, path string) *types.Template {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read fixture %s", path)
	obj := map[string]interface{}{}
	useNumber := func(d *json.Decoder) *json.Decoder {
		d.UseNumber()
		return d
	}
	require.NoError(t, yaml.Unmarshal(data, &obj, useNumber), "failed to parse fixture %s", path)
	return types.NewTemplate(obj)
}

// MakeResolver builds an AWS::AppSync::Resolver resource object.
// Empty request or response templates are left out of Properties.
func MakeResolver(typeName, fieldName, request, response string) map[string]interface{} {
	props := map[string]interface{}{
		"ApiId":          map[string]interface{}{"Fn::GetAtt": []interface{}{"GraphQLAPI", "ApiId"}},
		"DataSourceName": map[string]interface{}{"Fn::GetAtt": []interface{}{"WidgetDataSource", "Name"}},
		"TypeName":       typeName,
		"FieldName":      fieldName,
	}
	if request != "" {
		props[types.FieldRequestMappingTemplate] = request
	}
	if response != "" {
		props[types.FieldResponseMappingTemplate] = response
	}
	return map[string]interface{}{
		"Type":       types.ResourceTypeResolver,
		"Properties": props,
	}
}

// MakeTable builds a DynamoDB table resource, a typical non-resolver neighbor.
func MakeTable(name string) map[string]interface{} {
	return map[string]interface{}{
		"Type": "AWS::DynamoDB::Table",
		"Properties": map[string]interface{}{
			"TableName":   name,
			"BillingMode": "PAY_PER_REQUEST",
		},
	}
}

// MakeTemplate wraps resources in a template with a description and outputs.
func MakeTemplate(resources map[string]interface{}) *types.Template {
	return types.NewTemplate(map[string]interface{}{
		"AWSTemplateFormatVersion": "2010-09-09",
		"Description":              "An auto-generated nested stack.",
		"Resources":                resources,
		"Outputs": map[string]interface{}{
			"GetAttGraphQLAPIApiId": map[string]interface{}{
				"Value": map[string]interface{}{"Ref": "AppSyncApiId"},
			},
		},
	})
}

// Property reads Properties[field] from the named resource, failing if absent.
func Property(t *testing.T, tmpl *types.Template, resource, field string) string {
	t.Helper()
	r := tmpl.Resource(resource)
	require.NotNil(t, r, "resource %s not found", resource)
	v, err := r.StringProperty(field)
	require.NoError(t, err)
	return v
}
