// Package guards provides the impersonation guards injected into generated
// AppSync resolvers.
//
// # Guards
//
//   - read-guard: Query resolvers. Prepended to both RequestMappingTemplate and
//     ResponseMappingTemplate. When the caller's group claim contains the
//     sentinel group, the subject claim is replaced with the impersonated
//     subject claim before the original template runs.
//
//   - write-guard: Mutation resolvers. Prepended to RequestMappingTemplate only.
//     When the caller's group claim contains the sentinel group, evaluation ends
//     with $util.unauthorized() and the original template never runs.
//
// A missing group claim is treated as an empty list in both guards.
//
// # Constructor
//
//	func NewReadGuard(policy Policy) types.Guard
//	func NewWriteGuard(policy Policy) types.Guard
package guards
