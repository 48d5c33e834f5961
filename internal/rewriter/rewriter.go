package rewriter

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/capbase/resolverguard/internal/guards"
	"github.com/capbase/resolverguard/internal/mapping"
	"github.com/capbase/resolverguard/internal/types"
)

// Mode selects how a guard block is combined with an existing mapping template.
type Mode string

const (
	// ModeCompose skips guards that are already present.
	ModeCompose Mode = "compose"
	// ModeConcat always prepends, stacking repeated guards.
	ModeConcat Mode = "concat"
)

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCompose, "":
		return ModeCompose, nil
	case ModeConcat:
		return ModeConcat, nil
	default:
		return "", fmt.Errorf("unknown rewrite mode %q (want %s or %s)", s, ModeCompose, ModeConcat)
	}
}

// Options control rewriting behavior.
type Options struct {
	Mode Mode
	// Strict turns missing or non-string mapping fields into errors.
	Strict bool
}

// DefaultOptions returns compose mode with strict field checks.
func DefaultOptions() Options {
	return Options{Mode: ModeCompose, Strict: true}
}

// Rewriter applies registered guards to a template.
// Guards must be registered before Rewrite is called (not concurrent with RegisterGuard).
type Rewriter struct {
	logger *zap.Logger
	opts   Options
	guards []types.Guard
	known  []string
}

// New creates a Rewriter with no guards.
func New(logger *zap.Logger, opts Options) *Rewriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Mode == "" {
		opts.Mode = ModeCompose
	}
	return &Rewriter{logger: logger, opts: opts}
}

// NewDefault creates a Rewriter with the read guard followed by the write guard.
func NewDefault(logger *zap.Logger, policy guards.Policy, opts Options) (*Rewriter, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid guard policy: %w", err)
	}
	r := New(logger, opts)
	for _, g := range []types.Guard{guards.NewReadGuard(policy), guards.NewWriteGuard(policy)} {
		if err := r.RegisterGuard(g); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// RegisterGuard adds a guard. Must be called before Rewrite (not concurrent).
// Returns an error if a guard with the same name or block name is already registered.
func (r *Rewriter) RegisterGuard(guard types.Guard) error {
	for _, existing := range r.guards {
		if existing.Name() == guard.Name() {
			return fmt.Errorf("guard %q already registered", guard.Name())
		}
		if existing.Block().Name == guard.Block().Name {
			return fmt.Errorf("block %q of guard %q already used by guard %q",
				guard.Block().Name, guard.Name(), existing.Name())
		}
	}
	r.guards = append(r.guards, guard)
	r.known = append(r.known, guard.Block().Name)
	return nil
}

// Guards returns the registered guards in application order.
func (r *Rewriter) Guards() []types.Guard {
	return append([]types.Guard(nil), r.guards...)
}

// Rewrite returns a guarded copy of tmpl. The input is not modified.
// On error the returned template is nil and the report describes the work
// that would have been done.
func (r *Rewriter) Rewrite(ctx context.Context, tmpl *types.Template) (*types.Template, *Report, error) {
	if tmpl == nil {
		return nil, nil, errors.New("template is nil")
	}
	out, err := tmpl.DeepCopy()
	if err != nil {
		return nil, nil, err
	}
	report, err := r.RewriteInPlace(ctx, out)
	if err != nil {
		return nil, report, err
	}
	return out, report, nil
}

// RewriteInPlace applies the guards directly to tmpl.
// On error tmpl may be partially rewritten.
func (r *Rewriter) RewriteInPlace(ctx context.Context, tmpl *types.Template) (*Report, error) {
	if tmpl == nil {
		return nil, errors.New("template is nil")
	}

	resources := tmpl.Resources()
	report := &Report{Mode: r.opts.Mode, Scanned: len(resources)}
	var errs error

	for _, guard := range r.guards {
		for _, res := range resources {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if !guard.Matches(res) {
				continue
			}

			change, err := r.apply(guard, res)
			if err != nil {
				change.Error = err.Error()
				errs = multierr.Append(errs, err)
			}
			report.add(change)
		}
	}

	if errs != nil {
		r.logger.Error("Template rewrite failed",
			zap.Int("errors", len(multierr.Errors(errs))),
			zap.Error(errs),
		)
		return report, errs
	}

	r.logger.Info("Template rewritten",
		zap.String("mode", string(r.opts.Mode)),
		zap.Int("resources", report.Scanned),
		zap.Int("guarded", len(report.Changes)),
		zap.Int("fields_changed", report.FieldsChanged()),
	)
	return report, nil
}

// apply prepends the guard's block to each of its fields on res.
// In strict mode the resource is left untouched when any field is malformed.
func (r *Rewriter) apply(guard types.Guard, res *types.Resource) (Change, error) {
	change := Change{
		Resource:  res.Name,
		TypeName:  string(res.TypeName()),
		FieldName: res.FieldName(),
		Guard:     guard.Name(),
	}

	sources := make(map[string]string, len(guard.Fields()))
	var errs error
	for _, field := range guard.Fields() {
		src, err := res.StringProperty(field)
		if err != nil {
			if r.opts.Strict {
				errs = multierr.Append(errs, err)
				continue
			}
			r.logger.Warn("Skipping malformed resolver field",
				zap.String("resource", res.Name),
				zap.String("field", field),
				zap.String("guard", guard.Name()),
				zap.Error(err),
			)
			change.Skipped = append(change.Skipped, field)
			continue
		}
		sources[field] = src
	}
	if errs != nil {
		return change, errs
	}

	block := guard.Block()
	for _, field := range guard.Fields() {
		src, ok := sources[field]
		if !ok {
			continue
		}
		doc := mapping.Parse(src, r.known...)
		changed := true
		switch r.opts.Mode {
		case ModeConcat:
			doc.Prepend(block)
		default:
			changed = doc.Ensure(block)
		}
		if !changed {
			change.Unchanged = append(change.Unchanged, field)
			continue
		}
		res.SetStringProperty(field, doc.Render())
		change.Fields = append(change.Fields, field)

		r.logger.Debug("Guard applied",
			zap.String("resource", res.Name),
			zap.String("guard", guard.Name()),
			zap.String("field", field),
		)
	}
	return change, nil
}
