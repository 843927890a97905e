package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_querier.go -package=mocks askdata-ai/internal/storage Querier

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// RowSet holds the result of a read query in column/row form.
type RowSet struct {
	Columns []string
	Rows    [][]any
}

// SingleValue reports the numeric value of a 1x1 result set, if it is one.
// Aggregation queries (COUNT, SUM, AVG) produce exactly this shape, and the
// value must reach the caller unaltered by narration.
func (rs *RowSet) SingleValue() (float64, bool) {
	if rs == nil || len(rs.Rows) != 1 || len(rs.Rows[0]) != 1 {
		return 0, false
	}
	switch v := rs.Rows[0][0].(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Querier executes validated read-only SQL against the live store.
// Implementations never receive unvalidated statements; safety checks run
// upstream in the SQL resolution path.
type Querier interface {
	Query(ctx context.Context, sqlText string) (*RowSet, error)
}

// cachedResult is a query result with its capture time.
type cachedResult struct {
	rows       *RowSet
	capturedAt time.Time
}

// SQLQuerier implements Querier over database/sql with a short-TTL result cache.
type SQLQuerier struct {
	db  *sql.DB
	ttl time.Duration

	mu    sync.RWMutex
	cache map[string]cachedResult
	now   func() time.Time
}

// NewSQLQuerier creates a querier with a 30-second result cache.
func NewSQLQuerier(db *sql.DB) *SQLQuerier {
	return &SQLQuerier{
		db:    db,
		ttl:   30 * time.Second,
		cache: make(map[string]cachedResult),
		now:   time.Now,
	}
}

// Query runs the statement and returns all rows.
// Identical statements within the cache TTL are served from memory.
func (q *SQLQuerier) Query(ctx context.Context, sqlText string) (*RowSet, error) {
	q.mu.RLock()
	if entry, ok := q.cache[sqlText]; ok && q.now().Sub(entry.capturedAt) < q.ttl {
		q.mu.RUnlock()
		return entry.rows, nil
	}
	q.mu.RUnlock()

	rows, err := q.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &RowSet{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		scanTargets := make([]any, len(cols))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	q.mu.Lock()
	q.cache[sqlText] = cachedResult{rows: result, capturedAt: q.now()}
	q.mu.Unlock()

	return result, nil
}
