package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ColumnInfo describes a single column of a live table.
type ColumnInfo struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

// TableInfo describes a live table: its columns, a rendered DDL-style
// definition, and a natural-language description used for semantic selection.
type TableInfo struct {
	Name        string
	Columns     []ColumnInfo
	Definition  string
	Description string
}

// tableDescriptions holds natural-language descriptions for the known store
// tables. Unknown tables fall back to their rendered definition.
var tableDescriptions = map[string]string{
	"customers":       "Customer accounts: names, contact details, addresses and registration dates.",
	"products":        "Product catalog: names, descriptions, prices, categories and stock quantities.",
	"orders":          "Customer orders: totals, statuses, order dates and shipping addresses.",
	"order_items":     "Line items linking orders to products with quantities and unit prices.",
	"reviews":         "Product reviews left by customers: ratings from 1 to 5 and comments.",
	"support_tickets": "Customer support tickets: subjects, descriptions, statuses and resolution times.",
}

// ListTables introspects the live store and returns one TableInfo per table,
// ordered by table name. The Schema Index consumes this at build time.
func ListTables(ctx context.Context, db *sql.DB) ([]TableInfo, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	tables := make([]TableInfo, 0, len(names))
	for _, name := range names {
		info, err := describeTable(ctx, db, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, info)
	}

	return tables, nil
}

func describeTable(ctx context.Context, db *sql.DB, name string) (TableInfo, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", name))
	if err != nil {
		return TableInfo{}, fmt.Errorf("failed to introspect table %s: %w", name, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	info := TableInfo{Name: name}
	for rows.Next() {
		var (
			cid      int
			colName  string
			colType  string
			notNull  int
			dflt     sql.NullString
			pk       int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return TableInfo{}, fmt.Errorf("failed to scan column info: %w", err)
		}
		info.Columns = append(info.Columns, ColumnInfo{
			Name:       colName,
			Type:       colType,
			NotNull:    notNull == 1,
			PrimaryKey: pk > 0,
		})
	}
	if err := rows.Err(); err != nil {
		return TableInfo{}, fmt.Errorf("row iteration error: %w", err)
	}

	info.Definition = renderDefinition(info)
	if desc, ok := tableDescriptions[name]; ok {
		info.Description = desc
	} else {
		info.Description = info.Definition
	}

	return info, nil
}

// renderDefinition renders a CREATE TABLE style definition for LLM context.
func renderDefinition(info TableInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", info.Name)

	parts := make([]string, 0, len(info.Columns))
	for _, col := range info.Columns {
		part := fmt.Sprintf("  %s %s", col.Name, col.Type)
		if col.NotNull {
			part += " NOT NULL"
		}
		if col.PrimaryKey {
			part += " PRIMARY KEY"
		}
		parts = append(parts, part)
	}
	b.WriteString(strings.Join(parts, ",\n"))
	b.WriteString("\n);")

	return b.String()
}
