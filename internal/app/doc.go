// Package app is the application layer: it orchestrates validation, rate
// limiting, persistence, and the cached aggregate read path.
package app
