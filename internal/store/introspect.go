package store

import (
	"context"
	"strings"
)

// Tables returns the names of every table in the database, including
// sqlite_sequence when any AUTOINCREMENT table exists.
func (db *DB) Tables(ctx context.Context) (map[string]bool, error) {
	rows, err := db.QueryRows(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return nil, err
	}
	tables := make(map[string]bool, len(rows))
	for _, row := range rows {
		if name, ok := row["name"].(string); ok {
			tables[name] = true
		}
	}
	return tables, nil
}

// Columns returns a table's columns mapped to their upper-cased declared
// types. Missing tables yield an empty map.
func (db *DB) Columns(ctx context.Context, table string) (map[string]string, error) {
	rows, err := db.QueryRows(ctx, "SELECT name, type FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, err
	}
	cols := make(map[string]string, len(rows))
	for _, row := range rows {
		name, _ := row["name"].(string)
		typ, _ := row["type"].(string)
		if name != "" {
			cols[name] = strings.ToUpper(typ)
		}
	}
	return cols, nil
}

// HasForeignKey reports whether table declares a foreign key from column to
// refTable.
func (db *DB) HasForeignKey(ctx context.Context, table, column, refTable string) (bool, error) {
	rows, err := db.QueryRows(ctx, `SELECT "table", "from" FROM pragma_foreign_key_list(?)`, table)
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		to, _ := row["table"].(string)
		from, _ := row["from"].(string)
		if from == column && to == refTable {
			return true, nil
		}
	}
	return false, nil
}
