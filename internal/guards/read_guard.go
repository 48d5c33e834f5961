package guards

import (
	"fmt"

	"github.com/capbase/resolverguard/internal/mapping"
	"github.com/capbase/resolverguard/internal/types"
)

// ReadGuardBlockName is the marker name of the read guard block.
const ReadGuardBlockName = "Impersonation sub Replacement"

type readGuard struct {
	block types.GuardBlock
}

// NewReadGuard returns the guard that substitutes the impersonated subject on
// Query resolvers.
func NewReadGuard(policy Policy) types.Guard {
	lines := append(policy.groupLines(),
		fmt.Sprintf(`  #set( $ctx.identity.claims.%s = $ctx.identity.claims.%s )`,
			policy.SubjectClaim, policy.ImpersonatedSubjectClaim),
		`#end`,
	)
	return &readGuard{block: mapping.Wrap(ReadGuardBlockName, lines...)}
}

func (g *readGuard) Name() string { return "read-guard" }

func (g *readGuard) Description() string {
	return "Replaces the subject claim with the impersonated subject for impersonated callers on Query resolvers"
}

func (g *readGuard) Matches(r *types.Resource) bool {
	return r.IsResolver() && r.TypeName() == types.OperationQuery
}

func (g *readGuard) Fields() []string {
	return []string{types.FieldRequestMappingTemplate, types.FieldResponseMappingTemplate}
}

func (g *readGuard) Block() types.GuardBlock { return g.block }
