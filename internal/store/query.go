package store

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// ResultSet is the materialized result of an ad-hoc query.
// All values are normalized to strings for rendering and persistence;
// NULL becomes the empty string.
type ResultSet struct {
	Columns  []string   `json:"columns"`
	Rows     [][]string `json:"rows"`
	RowCount int        `json:"row_count"`
}

// Query executes free-text SQL verbatim and materializes the result.
// Values are parameterized via positional placeholders; identifiers and the
// statement text itself are the caller's responsibility (console input is
// executed as-is, matching the ad-hoc console contract).
func (s *Store) Query(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	rs := &ResultSet{
		Columns: cols,
		Rows:    [][]string{},
	}

	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = normalizeValue(v)
		}
		rs.Rows = append(rs.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	rs.RowCount = len(rs.Rows)
	return rs, nil
}

// normalizeValue converts a driver value to its string rendering.
func normalizeValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(timeLayout)
	default:
		return fmt.Sprint(x)
	}
}
