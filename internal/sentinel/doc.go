// Package sentinel defines Error, a string type for declaring package-level
// sentinel errors as constants so they cannot be reassigned by importers.
package sentinel
