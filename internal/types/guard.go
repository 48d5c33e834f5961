package types

// GuardBlock is a named fragment of mapping-template logic that is placed in
// front of a resolver's original mapping template.
type GuardBlock struct {
	// Name appears in the "## [Start] <Name>" / "## [End] <Name>" markers.
	Name string
	// Text is the complete fragment including both markers, without a trailing newline.
	Text string
}

// Guard injects an authorization block into selected resolver resources.
//
// Implementations must be safe for concurrent use and must not mutate
// the resources passed to Matches.
type Guard interface {
	// Name returns a unique identifier for this guard.
	// Used in logging and change reports. Examples: "read-guard", "write-guard"
	Name() string

	// Description returns a human-readable explanation of what the guard does.
	Description() string

	// Matches reports whether the guard applies to the resource.
	Matches(r *Resource) bool

	// Fields returns the mapping template properties the block is prepended to.
	Fields() []string

	// Block returns the fragment to prepend. Every field receives its own copy.
	Block() GuardBlock
}
