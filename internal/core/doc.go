// Package core implements the backend server supervisor behind the public
// nodeserver API.
//
// Supervisor owns at most one child process. Start and Stop are serialized by
// a single mutex, so concurrent callers can never produce two live servers.
// Health probes and the fixed waits inside Restart run outside that mutex.
package core
