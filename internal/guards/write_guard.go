package guards

import (
	"github.com/capbase/resolverguard/internal/mapping"
	"github.com/capbase/resolverguard/internal/types"
)

// WriteGuardBlockName is the marker name of the write guard block.
const WriteGuardBlockName = "Impersonation Check"

type writeGuard struct {
	block types.GuardBlock
}

// NewWriteGuard returns the guard that rejects impersonated callers on
// Mutation resolvers.
func NewWriteGuard(policy Policy) types.Guard {
	lines := append(policy.groupLines(),
		`  $util.unauthorized()`,
		`#end`,
	)
	return &writeGuard{block: mapping.Wrap(WriteGuardBlockName, lines...)}
}

func (g *writeGuard) Name() string { return "write-guard" }

func (g *writeGuard) Description() string {
	return "Rejects impersonated callers on Mutation resolvers before the request template runs"
}

func (g *writeGuard) Matches(r *types.Resource) bool {
	return r.IsResolver() && r.TypeName() == types.OperationMutation
}

func (g *writeGuard) Fields() []string {
	return []string{types.FieldRequestMappingTemplate}
}

func (g *writeGuard) Block() types.GuardBlock { return g.block }

// BlockNames lists the marker names of all guards in this package.
func BlockNames() []string {
	return []string{ReadGuardBlockName, WriteGuardBlockName}
}
