// Package store reads summary statistics from the backend server's SQLite
// database. It opens the file read-only and never creates or migrates it;
// the schema belongs to the server.
package store
