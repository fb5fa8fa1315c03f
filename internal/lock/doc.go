// Package lock guards the backend server against being supervised by two
// host processes at once, using an advisory file lock in the data directory.
package lock
