package export

import (
	"context"
	"encoding/csv"
	"os"
	"jobharvest/internal/frame"
)

// utf-8 byte order mark, spreadsheet programs need it to detect the encoding
const bom = "\ufeff"

func writeCSV(_ context.Context, path string, table frame.Table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(bom)
	if err != nil {
		return err
	}

	w := csv.NewWriter(file)
	err = w.Write(table.Columns)
	if err != nil {
		return err
	}
	err = w.WriteAll(table.StringRows())
	if err != nil {
		return err
	}
	return file.Close()
}
