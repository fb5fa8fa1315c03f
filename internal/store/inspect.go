package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	// Register the pure-Go SQLite driver (no CGO required).
	_ "modernc.org/sqlite"
)

// Tables owned by the backend server whose row counts are reported.
const (
	TableAPIKeys           = "api_keys"
	TableAPICalls          = "api_calls"
	TableProviderTemplates = "provider_templates"
)

var knownTables = []string{TableAPIKeys, TableAPICalls, TableProviderTemplates}

// Stats summarizes the server database. Row counts are -1 for tables the
// database does not (yet) contain.
type Stats struct {
	Path              string `json:"path"`
	Exists            bool   `json:"exists"`
	SizeBytes         int64  `json:"size_bytes"`
	APIKeys           int64  `json:"api_keys"`
	APICalls          int64  `json:"api_calls"`
	ProviderTemplates int64  `json:"provider_templates"`
}

// Inspect opens the database at path read-only and counts rows in the
// server's tables. A missing file is not an error: the server creates the
// database on first start, so Stats.Exists is simply false.
func Inspect(ctx context.Context, path string, log *slog.Logger) (Stats, error) {
	if log == nil {
		log = slog.Default()
	}
	st := Stats{Path: path, APIKeys: -1, APICalls: -1, ProviderTemplates: -1}
	if path == "" {
		return st, nil
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("stat database %s: %w", path, err)
	}
	st.Exists = true
	st.SizeBytes = info.Size()

	// mode=ro keeps us from creating or upgrading anything; the busy
	// timeout covers the server holding a write transaction.
	dsn := (&url.URL{
		Scheme:   "file",
		Path:     path,
		RawQuery: "mode=ro&_pragma=busy_timeout(5000)",
	}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return st, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Warn("inspect: close sqlite", "error", closeErr)
		}
	}()
	db.SetMaxOpenConns(1)

	present, err := existingTables(ctx, db)
	if err != nil {
		return st, err
	}

	counts := map[string]*int64{
		TableAPIKeys:           &st.APIKeys,
		TableAPICalls:          &st.APICalls,
		TableProviderTemplates: &st.ProviderTemplates,
	}
	for _, table := range knownTables {
		if _, ok := present[table]; !ok {
			continue
		}
		// table comes from knownTables, never from input.
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(counts[table]); err != nil {
			return st, fmt.Errorf("count %s: %w", table, err)
		}
	}

	log.Debug("inspected database", "path", path, "api_keys", st.APIKeys, "api_calls", st.APICalls)
	return st, nil
}

func existingTables(ctx context.Context, db *sql.DB) (map[string]struct{}, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}
