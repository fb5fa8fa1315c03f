// Package health probes the backend server's HTTP health endpoint.
//
// A probe never fails: refused connections, non-2xx statuses and timeouts
// all fold into a false result. Concurrent probes share one request.
package health
