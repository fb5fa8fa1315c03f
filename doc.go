// Package nodeserver supervises the backend server of the API Proxy desktop
// shell.
//
// A Supervisor launches one server process (node dist/server.js by default)
// from the application's resource directory, probes its health endpoint and
// restarts it on request. A Host wraps a Supervisor with the application
// setup step and the commands the UI invokes.
//
// # Basic Usage
//
//	import "github.com/apiproxy/nodeserver"
//
//	ctx := context.Background()
//
//	sup := nodeserver.New()
//	host := nodeserver.NewHost(sup, nodeserver.ExecutableDir())
//	defer host.Close()
//
//	if err := host.Setup(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	healthy, _ := host.CheckServerStatus(ctx)
//
// # Server Environment
//
// The server runs with its working directory set to the resource directory
// and receives PORT (default 3000), NODE_ENV=production and DATABASE_PATH,
// which points at api-proxy.db inside <platform data dir>/api-proxy. The data
// directory is created on start; failing to create it is logged, not fatal.
// The server's stdout and stderr are discarded.
//
// # Failure Handling
//
// There is no automatic crash recovery. A server that exits on its own is
// only noticed through CheckStatus, and Restart is the single recovery path.
// Stop kills the server without a graceful shutdown.
package nodeserver
