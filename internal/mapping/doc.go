// Package mapping models a resolver mapping template as an ordered list of
// named guard blocks followed by the original template body.
//
// A guard block is delimited by Amplify-style markers:
//
//	## [Start] Impersonation Check
//	...
//	## [End] Impersonation Check
//
// Rendering a document writes each block followed by a newline and then the
// body, so a block prepended to a template leaves the original bytes
// contiguous at the end. Parse is the inverse of Render for every input:
// only leading blocks with a known name are split off, and everything else
// stays in Body byte-for-byte.
package mapping
