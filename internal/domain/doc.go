// Package domain contains the core types of the rock-bench voting system:
// the subject catalog, votes, aggregate statistics, and the rate limit policy.
// It has no dependencies on transport or storage.
package domain
