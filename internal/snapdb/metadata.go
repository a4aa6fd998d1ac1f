package snapdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// LegacyMetadataTable is the key/value table the first schema generation used
// instead of drive_info. It is read-compatible only; the engine never writes
// it.
const LegacyMetadataTable = "metadata"

// ReadLegacyMetadata reads the legacy key/value table. Each value is
// opportunistically parsed as JSON and falls back to the plain string when it
// is not valid JSON.
func ReadLegacyMetadata(ctx context.Context, db *sql.DB) (map[string]any, error) {
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM metadata")
	if err != nil {
		return nil, fmt.Errorf("reading legacy metadata: %w", err)
	}
	defer rows.Close()

	out := make(map[string]any)
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning metadata row: %w", err)
		}
		if !value.Valid {
			continue
		}

		var parsed any
		if err := json.Unmarshal([]byte(value.String), &parsed); err == nil {
			out[key] = parsed
		} else {
			out[key] = value.String
		}
	}
	return out, rows.Err()
}
