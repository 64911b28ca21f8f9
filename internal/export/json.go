package export

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"jobharvest/internal/frame"
)

// orderedRow marshals as an object whose keys follow the table's column order.
type orderedRow struct {
	columns []string
	cells   []any
}

func marshalValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(v)
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (r orderedRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalValue(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var cell any
		if i < len(r.cells) {
			cell = r.cells[i]
		}
		value, err := marshalValue(cell)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSON(_ context.Context, path string, table frame.Table) error {
	rows := make([]orderedRow, len(table.Rows))
	for i, cells := range table.Rows {
		rows[i] = orderedRow{columns: table.Columns, cells: cells}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	err := enc.Encode(rows)
	if err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0644)
}
