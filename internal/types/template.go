package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"k8s.io/apimachinery/pkg/runtime"

	"github.com/capbase/resolverguard/internal/util"
)

// ResourceTypeResolver is the CloudFormation type of a GraphQL field resolver.
const ResourceTypeResolver = "AWS::AppSync::Resolver"

// OperationType is the GraphQL type that owns a resolver's field.
type OperationType string

const (
	OperationQuery        OperationType = "Query"
	OperationMutation     OperationType = "Mutation"
	OperationSubscription OperationType = "Subscription"
)

// Mapping template property names on a resolver resource.
const (
	FieldRequestMappingTemplate  = "RequestMappingTemplate"
	FieldResponseMappingTemplate = "ResponseMappingTemplate"
)

// Template is a generated infrastructure template held as a generic JSON object.
// Everything outside Resources is carried through untouched.
type Template struct {
	Object map[string]interface{}
}

// NewTemplate wraps obj. A nil obj yields an empty template.
func NewTemplate(obj map[string]interface{}) *Template {
	if obj == nil {
		obj = map[string]interface{}{}
	}
	return &Template{Object: obj}
}

// DeepCopy returns an independent copy of the template. Templates built in
// code may hold Go-native values such as int or []string; those are
// normalised to their JSON form in the copy. It fails only when a value has
// no JSON representation.
func (t *Template) DeepCopy() (*Template, error) {
	if t == nil {
		return nil, nil
	}
	if obj, ok := deepCopyJSON(t.Object); ok {
		return &Template{Object: obj}, nil
	}

	data, err := json.Marshal(t.Object)
	if err != nil {
		return nil, fmt.Errorf("template is not JSON-compatible: %w", err)
	}
	obj := map[string]interface{}{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("template is not JSON-compatible: %w", err)
	}
	return &Template{Object: obj}, nil
}

// deepCopyJSON copies obj with runtime.DeepCopyJSON, which panics on values
// outside the JSON data model.
func deepCopyJSON(obj map[string]interface{}) (cp map[string]interface{}, ok bool) {
	defer func() {
		if recover() != nil {
			cp, ok = nil, false
		}
	}()
	return runtime.DeepCopyJSON(obj), true
}

// ResourceNames returns the logical names of all resources in sorted order.
func (t *Template) ResourceNames() []string {
	resources := util.SafeNestedMapRef(t.Object, "Resources")
	names := make([]string, 0, len(resources))
	for name := range resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resource returns the named resource, or nil if it is missing or not an object.
// The returned Resource shares storage with the template.
func (t *Template) Resource(name string) *Resource {
	resources := util.SafeNestedMapRef(t.Object, "Resources")
	obj, ok := resources[name].(map[string]interface{})
	if !ok {
		return nil
	}
	return &Resource{Name: name, Object: obj}
}

// Resources returns every resource in sorted name order.
func (t *Template) Resources() []*Resource {
	var result []*Resource
	for _, name := range t.ResourceNames() {
		if r := t.Resource(name); r != nil {
			result = append(result, r)
		}
	}
	return result
}

// Resource is a single entry of the template's Resources map.
type Resource struct {
	Name   string
	Object map[string]interface{}
}

// Type returns the resource's Type discriminator.
func (r *Resource) Type() string {
	return util.SafeStringFromMap(r.Object, "Type")
}

// TypeName returns Properties.TypeName, the GraphQL type owning the field.
func (r *Resource) TypeName() OperationType {
	return OperationType(util.SafeNestedString(r.Object, "Properties", "TypeName"))
}

// FieldName returns Properties.FieldName.
func (r *Resource) FieldName() string {
	return util.SafeNestedString(r.Object, "Properties", "FieldName")
}

// IsResolver reports whether the resource is a GraphQL field resolver.
func (r *Resource) IsResolver() bool {
	return r.Type() == ResourceTypeResolver
}

// StringProperty returns Properties[field]. It returns a MalformedResourceError
// when the field is absent or holds something other than a literal string
// (for example an intrinsic function object).
func (r *Resource) StringProperty(field string) (string, error) {
	if !r.HasProperty(field) {
		return "", &MalformedResourceError{Resource: r.Name, Field: field, Reason: "field is missing"}
	}
	s, ok := util.SafeNestedMapRef(r.Object, "Properties")[field].(string)
	if !ok {
		return "", &MalformedResourceError{Resource: r.Name, Field: field, Reason: "field is not a literal string"}
	}
	return s, nil
}

// HasProperty reports whether Properties[field] is present and not null.
func (r *Resource) HasProperty(field string) bool {
	props := util.SafeNestedMapRef(r.Object, "Properties")
	return props[field] != nil
}

// SetStringProperty writes Properties[field], creating Properties if needed.
func (r *Resource) SetStringProperty(field, value string) {
	props, ok := r.Object["Properties"].(map[string]interface{})
	if !ok {
		props = map[string]interface{}{}
		r.Object["Properties"] = props
	}
	props[field] = value
}
