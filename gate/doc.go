// Package gate sequences the permission and quota checks for a tool call.
//
// A Coordinator runs the permission check first and the quota check second,
// stopping at the first denial. Its only output is a Decision; forwarding
// admitted calls is left to the caller. Store faults are returned as errors
// and are never turned into a decision, with one exception: a missing
// process-wide rate limit fails closed as a rate_limited denial.
package gate
