package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"jobharvest/internal/frame"

	_ "modernc.org/sqlite"
)

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// writeSQLite writes the table to a fresh database file as table `jobs`,
// every column is stored as TEXT.
func writeSQLite(ctx context.Context, path string, table frame.Table) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	columns := make([]string, len(table.Columns))
	placeholders := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		columns[i] = quoteIdent(col) + " TEXT"
		placeholders[i] = "?"
	}
	if len(columns) == 0 {
		return fmt.Errorf("table has no columns")
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE jobs (%s)", strings.Join(columns, ", ")))
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO jobs VALUES (%s)",
		strings.Join(placeholders, ", "),
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range table.StringRows() {
		args := make([]any, len(row))
		for i, cell := range row {
			args[i] = cell
		}
		_, err = stmt.ExecContext(ctx, args...)
		if err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
	}

	return tx.Commit()
}
