package nodeserver

import (
	"log/slog"

	"github.com/apiproxy/nodeserver/internal/core"
)

// SetLogger replaces the package-level logger used by nodeserver. The
// provided logger should already carry any desired attributes; nodeserver
// adds none of its own.
//
// If l is nil, the logger resets to slog.Default() with a "component"
// attribute. Call SetLogger(nil) after slog.SetDefault() to pick up the new
// default.
//
// SetLogger is safe to call concurrently with other nodeserver operations,
// but a Supervisor keeps the logger that was current when New created it.
//
// Example:
//
//	nodeserver.SetLogger(myLogger.With("component", "nodeserver"))
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
