// Package rewriter scans a generated AppSync template and prepends guard
// blocks to the mapping templates of selected resolvers.
//
// # Contract
//
// A resource is selected when its Type is AWS::AppSync::Resolver and its
// Properties.TypeName is exactly "Query" or "Mutation". Guards run in the
// order they were registered, so with NewDefault every Query resolver is
// handled before any Mutation resolver. Resources that no guard matches are
// never written.
//
// Rewrite is a pure transformation: the input template is deep-copied and the
// copy is returned. RewriteInPlace is the side-effecting variant for callers
// that own the template.
//
// # Modes
//
//   - ModeCompose (default): mapping templates are parsed into guard blocks and
//     body, and a guard already present is not added again. Running twice is
//     the same as running once.
//
//   - ModeConcat: the block is always prepended. Running twice leaves two
//     copies of each guard in front of the original body.
//
// # Malformed resources
//
// In strict mode a selected resolver missing a targeted field, or holding a
// non-string value there, produces a *types.MalformedResourceError. All such
// errors are combined and returned together. Lenient mode logs and skips.
//
// # Constructor
//
//	func New(logger *zap.Logger, opts Options) *Rewriter
//	func NewDefault(logger *zap.Logger, policy guards.Policy, opts Options) (*Rewriter, error)
//	func (r *Rewriter) RegisterGuard(guard types.Guard) error
//	func (r *Rewriter) Rewrite(ctx context.Context, tmpl *types.Template) (*types.Template, *Report, error)
package rewriter
