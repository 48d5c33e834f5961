package rewriter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"

	"github.com/capbase/resolverguard/internal/guards"
	"github.com/capbase/resolverguard/internal/testutil"
	"github.com/capbase/resolverguard/internal/types"
)

const (
	readPrefix  = "## [Start] Impersonation sub Replacement\n"
	writePrefix = "## [Start] Impersonation Check\n"
)

func newRewriter(t *testing.T, opts Options) *Rewriter {
	t.Helper()
	r, err := NewDefault(zaptest.NewLogger(t), guards.DefaultPolicy(), opts)
	require.NoError(t, err)
	return r
}

func readBlock() string {
	return guards.NewReadGuard(guards.DefaultPolicy()).Block().Text + "\n"
}

func writeBlock() string {
	return guards.NewWriteGuard(guards.DefaultPolicy()).Block().Text + "\n"
}

func widgetTemplate() *types.Template {
	return testutil.MakeTemplate(map[string]interface{}{
		"QuerylistWidgetsResolver":     testutil.MakeResolver("Query", "listWidgets", "## original request", "## original response"),
		"MutationcreateWidgetResolver": testutil.MakeResolver("Mutation", "createWidget", "## original", "## original mutation response"),
		"SubscriptiononWidgetResolver": testutil.MakeResolver("Subscription", "onWidget", "## sub request", "## sub response"),
		"WidgetownerResolver":          testutil.MakeResolver("Widget", "owner", "## nested request", "## nested response"),
		"WidgetTable":                  testutil.MakeTable("Widget"),
	})
}

func TestNewDefault_RegistersGuardsInOrder(t *testing.T) {
	r := newRewriter(t, DefaultOptions())

	gs := r.Guards()
	require.Len(t, gs, 2)
	assert.Equal(t, "read-guard", gs[0].Name())
	assert.Equal(t, "write-guard", gs[1].Name())
}

func TestNewDefault_InvalidPolicy(t *testing.T) {
	p := guards.DefaultPolicy()
	p.SentinelGroup = ""
	_, err := NewDefault(zaptest.NewLogger(t), p, DefaultOptions())
	assert.Error(t, err)
}

func TestNew_DefaultsMode(t *testing.T) {
	r := New(nil, Options{})
	assert.Equal(t, ModeCompose, r.opts.Mode)
	assert.NotNil(t, r.logger)
}

func TestRewrite_QueryScenario(t *testing.T) {
	r := newRewriter(t, DefaultOptions())
	in := testutil.MakeTemplate(map[string]interface{}{
		"listWidgets": testutil.MakeResolver("Query", "listWidgets", "## original request", "## original response"),
	})

	out, report, err := r.Rewrite(context.Background(), in)
	require.NoError(t, err)

	req := testutil.Property(t, out, "listWidgets", types.FieldRequestMappingTemplate)
	resp := testutil.Property(t, out, "listWidgets", types.FieldResponseMappingTemplate)
	assert.Equal(t, readBlock()+"## original request", req)
	assert.Equal(t, readBlock()+"## original response", resp)
	assert.True(t, strings.HasPrefix(req, readPrefix))
	assert.True(t, strings.HasSuffix(resp, "## original response"))

	require.Len(t, report.Changes, 1)
	assert.Equal(t, "read-guard", report.Changes[0].Guard)
	assert.Equal(t, []string{types.FieldRequestMappingTemplate, types.FieldResponseMappingTemplate}, report.Changes[0].Fields)
}

func TestRewrite_MutationScenario(t *testing.T) {
	r := newRewriter(t, DefaultOptions())
	in := testutil.MakeTemplate(map[string]interface{}{
		"createWidget": testutil.MakeResolver("Mutation", "createWidget", "## original", "## response"),
	})

	out, _, err := r.Rewrite(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, writeBlock()+"## original", testutil.Property(t, out, "createWidget", types.FieldRequestMappingTemplate))
	assert.Equal(t, "## response", testutil.Property(t, out, "createWidget", types.FieldResponseMappingTemplate))
}

func TestRewrite_MutationWithoutResponseTemplate(t *testing.T) {
	r := newRewriter(t, DefaultOptions())
	in := testutil.MakeTemplate(map[string]interface{}{
		"createWidget": testutil.MakeResolver("Mutation", "createWidget", "## original", ""),
	})

	out, _, err := r.Rewrite(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, out.Resource("createWidget").HasProperty(types.FieldResponseMappingTemplate))
}

func TestRewrite_GoNativeValues(t *testing.T) {
	r := newRewriter(t, DefaultOptions())
	in := types.NewTemplate(map[string]interface{}{
		"Resources": map[string]interface{}{
			"QuerylistWidgetsResolver": map[string]interface{}{
				"Type":      types.ResourceTypeResolver,
				"DependsOn": []string{"GraphQLSchema"},
				"Properties": map[string]interface{}{
					"TypeName":                "Query",
					"FieldName":               "listWidgets",
					"RequestMappingTemplate":  "## original request",
					"ResponseMappingTemplate": "## original response",
					"MaxBatchSize":            10,
				},
			},
		},
	})

	var out *types.Template
	var err error
	require.NotPanics(t, func() {
		out, _, err = r.Rewrite(context.Background(), in)
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(testutil.Property(t, out, "QuerylistWidgetsResolver", types.FieldRequestMappingTemplate), readPrefix))
	assert.Equal(t, "## original request", testutil.Property(t, in, "QuerylistWidgetsResolver", types.FieldRequestMappingTemplate))
}

func TestRewrite_NotJSONCompatible(t *testing.T) {
	r := newRewriter(t, DefaultOptions())
	in := testutil.MakeTemplate(map[string]interface{}{
		"QuerylistWidgetsResolver": testutil.MakeResolver("Query", "listWidgets", "## a", "## b"),
		"Callback":                 func() {},
	})

	out, report, err := r.Rewrite(context.Background(), in)
	assert.ErrorContains(t, err, "not JSON-compatible")
	assert.Nil(t, out)
	assert.Nil(t, report)
}

func TestRewrite_SelectionAndNonInterference(t *testing.T) {
	r := newRewriter(t, DefaultOptions())
	in := widgetTemplate()
	before, err := in.DeepCopy()
	require.NoError(t, err)

	out, report, err := r.Rewrite(context.Background(), in)
	require.NoError(t, err)

	for _, name := range []string{"SubscriptiononWidgetResolver", "WidgetownerResolver", "WidgetTable"} {
		assert.Equal(t, before.Resource(name).Object, out.Resource(name).Object, "resource %s changed", name)
	}
	assert.Equal(t, before.Object["Outputs"], out.Object["Outputs"])

	assert.Equal(t, 5, report.Scanned)
	assert.Equal(t, []string{"QuerylistWidgetsResolver", "MutationcreateWidgetResolver"}, report.Resources())
	assert.Equal(t, 3, report.FieldsChanged())
}

func TestRewrite_DoesNotMutateInput(t *testing.T) {
	r := newRewriter(t, DefaultOptions())
	in := widgetTemplate()
	before, err := in.DeepCopy()
	require.NoError(t, err)

	_, _, err = r.Rewrite(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, before.Object, in.Object)
}

func TestRewrite_QueriesBeforeMutations(t *testing.T) {
	r := newRewriter(t, DefaultOptions())
	in := testutil.MakeTemplate(map[string]interface{}{
		"AMutation": testutil.MakeResolver("Mutation", "a", "## a", ""),
		"ZQuery":    testutil.MakeResolver("Query", "z", "## z", "## z"),
	})

	_, report, err := r.Rewrite(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, report.Changes, 2)
	assert.Equal(t, "ZQuery", report.Changes[0].Resource)
	assert.Equal(t, "AMutation", report.Changes[1].Resource)
}

func TestRewrite_ComposeIsIdempotent(t *testing.T) {
	r := newRewriter(t, DefaultOptions())

	once, _, err := r.Rewrite(context.Background(), widgetTemplate())
	require.NoError(t, err)
	twice, report, err := r.Rewrite(context.Background(), once)
	require.NoError(t, err)

	assert.Equal(t, once.Object, twice.Object)
	assert.Equal(t, 0, report.FieldsChanged())
	for _, c := range report.Changes {
		assert.NotEmpty(t, c.Unchanged)
	}
}

func TestRewrite_ConcatStacksGuards(t *testing.T) {
	r := newRewriter(t, Options{Mode: ModeConcat, Strict: true})

	once, _, err := r.Rewrite(context.Background(), widgetTemplate())
	require.NoError(t, err)
	twice, report, err := r.Rewrite(context.Background(), once)
	require.NoError(t, err)

	assert.Equal(t, readBlock()+readBlock()+"## original request",
		testutil.Property(t, twice, "QuerylistWidgetsResolver", types.FieldRequestMappingTemplate))
	assert.Equal(t, readBlock()+readBlock()+"## original response",
		testutil.Property(t, twice, "QuerylistWidgetsResolver", types.FieldResponseMappingTemplate))
	assert.Equal(t, writeBlock()+writeBlock()+"## original",
		testutil.Property(t, twice, "MutationcreateWidgetResolver", types.FieldRequestMappingTemplate))
	assert.Equal(t, ModeConcat, report.Mode)
}

func TestRewrite_ComposeRefreshesChangedPolicy(t *testing.T) {
	old := guards.DefaultPolicy()
	old.SentinelGroup = "Legacy-Impersonation"
	oldRewriter, err := NewDefault(zaptest.NewLogger(t), old, DefaultOptions())
	require.NoError(t, err)

	guarded, _, err := oldRewriter.Rewrite(context.Background(), widgetTemplate())
	require.NoError(t, err)

	out, _, err := newRewriter(t, DefaultOptions()).Rewrite(context.Background(), guarded)
	require.NoError(t, err)
	assert.Equal(t, writeBlock()+"## original",
		testutil.Property(t, out, "MutationcreateWidgetResolver", types.FieldRequestMappingTemplate))
}

func TestRewrite_StrictMissingResponseTemplate(t *testing.T) {
	r := newRewriter(t, DefaultOptions())
	in := testutil.MakeTemplate(map[string]interface{}{
		"QuerygetWidgetResolver": testutil.MakeResolver("Query", "getWidget", "## request", ""),
		"QuerylistResolver":      testutil.MakeResolver("Query", "list", "", ""),
		"MutationokResolver":     testutil.MakeResolver("Mutation", "ok", "## ok", ""),
	})

	out, report, err := r.Rewrite(context.Background(), in)
	require.Error(t, err)
	assert.Nil(t, out)
	require.NotNil(t, report)

	errs := multierr.Errors(err)
	require.Len(t, errs, 3)

	var malformed *types.MalformedResourceError
	require.True(t, errors.As(errs[0], &malformed))
	assert.Equal(t, "QuerygetWidgetResolver", malformed.Resource)
	assert.Equal(t, types.FieldResponseMappingTemplate, malformed.Field)

	for _, c := range report.ForResource("QuerygetWidgetResolver") {
		assert.NotEmpty(t, c.Error)
		assert.Empty(t, c.Fields)
	}
}

func TestRewriteInPlace_StrictLeavesMalformedResourceUntouched(t *testing.T) {
	r := newRewriter(t, DefaultOptions())
	tmpl := testutil.MakeTemplate(map[string]interface{}{
		"QuerygetWidgetResolver": testutil.MakeResolver("Query", "getWidget", "## request", ""),
	})

	_, err := r.RewriteInPlace(context.Background(), tmpl)
	require.Error(t, err)
	assert.Equal(t, "## request", testutil.Property(t, tmpl, "QuerygetWidgetResolver", types.FieldRequestMappingTemplate))
}

func TestRewrite_LenientSkipsMalformedFields(t *testing.T) {
	r := newRewriter(t, Options{Mode: ModeCompose, Strict: false})
	in := testutil.MakeTemplate(map[string]interface{}{
		"QuerygetWidgetResolver": testutil.MakeResolver("Query", "getWidget", "## request", ""),
	})
	in.Resource("QuerygetWidgetResolver").Object["Properties"].(map[string]interface{})[types.FieldResponseMappingTemplate] =
		map[string]interface{}{"Fn::Join": []interface{}{"", []interface{}{"a", "b"}}}

	out, report, err := r.Rewrite(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, readBlock()+"## request", testutil.Property(t, out, "QuerygetWidgetResolver", types.FieldRequestMappingTemplate))
	assert.Equal(t, in.Resource("QuerygetWidgetResolver").Object["Properties"].(map[string]interface{})[types.FieldResponseMappingTemplate],
		out.Resource("QuerygetWidgetResolver").Object["Properties"].(map[string]interface{})[types.FieldResponseMappingTemplate])

	require.Len(t, report.Changes, 1)
	assert.Equal(t, []string{types.FieldResponseMappingTemplate}, report.Changes[0].Skipped)
}

func TestRewrite_NilTemplate(t *testing.T) {
	r := newRewriter(t, DefaultOptions())
	_, _, err := r.Rewrite(context.Background(), nil)
	assert.Error(t, err)
	_, err = r.RewriteInPlace(context.Background(), nil)
	assert.Error(t, err)
}

func TestRewrite_CancelledContext(t *testing.T) {
	r := newRewriter(t, DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := r.Rewrite(ctx, widgetTemplate())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRewrite_NoResources(t *testing.T) {
	r := newRewriter(t, DefaultOptions())
	out, report, err := r.Rewrite(context.Background(), types.NewTemplate(map[string]interface{}{
		"Description": "empty",
	}))
	require.NoError(t, err)
	assert.Equal(t, "empty", out.Object["Description"])
	assert.Equal(t, 0, report.Scanned)
	assert.Empty(t, report.Changes)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeCompose, m)

	m, err = ParseMode("concat")
	require.NoError(t, err)
	assert.Equal(t, ModeConcat, m)

	_, err = ParseMode("append")
	assert.Error(t, err)
}

// stubGuard is a test Guard with a fixed block that matches one resource name.
type stubGuard struct {
	name   string
	block  string
	target string
}

func (g *stubGuard) Name() string        { return g.name }
func (g *stubGuard) Description() string { return "stub guard" }
func (g *stubGuard) Matches(r *types.Resource) bool {
	return r.Name == g.target
}
func (g *stubGuard) Fields() []string { return []string{types.FieldRequestMappingTemplate} }
func (g *stubGuard) Block() types.GuardBlock {
	return types.GuardBlock{Name: g.block, Text: "## [Start] " + g.block + "\n## [End] " + g.block}
}

func TestRegisterGuard_Duplicates(t *testing.T) {
	r := New(zaptest.NewLogger(t), DefaultOptions())
	require.NoError(t, r.RegisterGuard(&stubGuard{name: "a", block: "A"}))

	assert.Error(t, r.RegisterGuard(&stubGuard{name: "a", block: "B"}))
	assert.Error(t, r.RegisterGuard(&stubGuard{name: "b", block: "A"}))
	assert.Len(t, r.Guards(), 1)
}

func TestRewrite_CustomGuard(t *testing.T) {
	r := New(zaptest.NewLogger(t), DefaultOptions())
	require.NoError(t, r.RegisterGuard(&stubGuard{name: "audit", block: "Audit", target: "WidgetTable"}))

	in := testutil.MakeTemplate(map[string]interface{}{
		"WidgetTable": map[string]interface{}{
			"Type":       "Custom::Thing",
			"Properties": map[string]interface{}{types.FieldRequestMappingTemplate: "body"},
		},
	})

	out, report, err := r.Rewrite(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "## [Start] Audit\n## [End] Audit\nbody",
		testutil.Property(t, out, "WidgetTable", types.FieldRequestMappingTemplate))
	require.Len(t, report.Changes, 1)
	assert.Equal(t, "audit", report.Changes[0].Guard)
}

func TestRewrite_GeneratedStackFixture(t *testing.T) {
	r := newRewriter(t, DefaultOptions())
	in := testutil.LoadFixture(t, "../cfn/testdata/widgets.json")
	origList := testutil.Property(t, in, "QuerylistWidgetsResolver", types.FieldRequestMappingTemplate)
	origCreate := testutil.Property(t, in, "MutationcreateWidgetResolver", types.FieldRequestMappingTemplate)

	out, report, err := r.Rewrite(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, readBlock()+origList, testutil.Property(t, out, "QuerylistWidgetsResolver", types.FieldRequestMappingTemplate))
	assert.Equal(t, writeBlock()+origCreate, testutil.Property(t, out, "MutationcreateWidgetResolver", types.FieldRequestMappingTemplate))
	assert.Equal(t, in.Resource("SubscriptiononCreateWidgetResolver").Object, out.Resource("SubscriptiononCreateWidgetResolver").Object)
	assert.Equal(t, in.Resource("WidgetTable").Object, out.Resource("WidgetTable").Object)
	assert.Equal(t, in.Object["Parameters"], out.Object["Parameters"])
	assert.Equal(t, 4, report.Scanned)
}
