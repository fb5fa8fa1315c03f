// Package process owns a single spawned OS process: starting it with exactly
// one reaping goroutine, killing it, and polling an external readiness check
// while watching for early exit.
package process
