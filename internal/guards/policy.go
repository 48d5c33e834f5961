package guards

import (
	"fmt"
	"regexp"
	"strings"
)

// Defaults match the Cognito user pool setup the guards were written for.
const (
	DefaultGroupsClaim              = "cognito:groups"
	DefaultSentinelGroup            = "Impersonated-User"
	DefaultSubjectClaim             = "sub"
	DefaultImpersonatedSubjectClaim = "impersonatedSub"
)

// claimIdentifier matches claim names usable in $ctx.identity.claims.<name>.
var claimIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Policy names the identity claims and the sentinel group the guards test.
type Policy struct {
	// GroupsClaim holds the caller's group memberships.
	GroupsClaim string `json:"groupsClaim" mapstructure:"groups_claim"`
	// SentinelGroup marks an impersonated session.
	SentinelGroup string `json:"sentinelGroup" mapstructure:"sentinel_group"`
	// SubjectClaim is overwritten by the read guard.
	SubjectClaim string `json:"subjectClaim" mapstructure:"subject_claim"`
	// ImpersonatedSubjectClaim supplies the replacement subject.
	ImpersonatedSubjectClaim string `json:"impersonatedSubjectClaim" mapstructure:"impersonated_subject_claim"`
}

// DefaultPolicy returns the Cognito defaults.
func DefaultPolicy() Policy {
	return Policy{
		GroupsClaim:              DefaultGroupsClaim,
		SentinelGroup:            DefaultSentinelGroup,
		SubjectClaim:             DefaultSubjectClaim,
		ImpersonatedSubjectClaim: DefaultImpersonatedSubjectClaim,
	}
}

// Validate rejects values that cannot be embedded in the generated VTL.
func (p Policy) Validate() error {
	if err := validateLiteral("groups claim", p.GroupsClaim); err != nil {
		return err
	}
	if err := validateLiteral("sentinel group", p.SentinelGroup); err != nil {
		return err
	}
	if !claimIdentifier.MatchString(p.SubjectClaim) {
		return fmt.Errorf("subject claim %q must be a plain identifier", p.SubjectClaim)
	}
	if !claimIdentifier.MatchString(p.ImpersonatedSubjectClaim) {
		return fmt.Errorf("impersonated subject claim %q must be a plain identifier", p.ImpersonatedSubjectClaim)
	}
	return nil
}

// validateLiteral checks a value that is placed inside a double-quoted VTL string.
func validateLiteral(what, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s must not be empty", what)
	}
	if strings.ContainsAny(v, "\"\n\r$#") {
		return fmt.Errorf("%s %q contains characters not allowed in a template literal", what, v)
	}
	return nil
}

// groupLines returns the shared preamble that loads the caller's groups.
func (p Policy) groupLines() []string {
	return []string{
		fmt.Sprintf(`#set( $userGroups = $util.defaultIfNull($ctx.identity.claims.get("%s"), []) )`, p.GroupsClaim),
		fmt.Sprintf(`#set( $disallowedGroup = "%s" )`, p.SentinelGroup),
		`#if( $userGroups.contains($disallowedGroup) )`,
	}
}
