// Package fileutil holds the small filesystem helpers used when preparing the
// server's launch environment: recursive directory creation and resolution of
// the per-user platform data directory.
package fileutil
