// Package netutil holds the small amount of TCP plumbing the supervisor needs:
// asking the kernel for a free loopback port and checking whether a port the
// server is about to bind is already taken.
package netutil
