// Package voteguard is the client-side companion of the vote API: a small
// state machine that shows the current aggregate, gates composing behind a
// local cooldown, and submits votes. The cooldown is a convenience cache with
// a TTL, not a security control; the server's sliding window is the real
// limiter and is always the final arbiter.
package voteguard
