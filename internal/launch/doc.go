// Package launch computes the backend server's startup environment: the
// working directory, the data directory holding its SQLite database, and the
// environment variables handed to the child. It is recomputed on every start.
package launch
