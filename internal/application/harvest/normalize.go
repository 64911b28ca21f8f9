package harvest

import (
	"time"
	"jobharvest/internal/components/chrono"
	"jobharvest/internal/frame"
	"jobharvest/lib/htmlutil"
)

const (
	ColumnScrapedDate = "Scraped Date"
	ColumnScrapedTime = "Scraped Time"
)

// Normalize left joins the listings to their details on the posting path and
// projects the result onto `columns`. A column whose source key is carried
// by no joined record is left out. Every row starts with the collection
// date and timestamp of `now`.
func Normalize(listings, details []frame.Record, columns []Column, pathField string, now time.Time) frame.Table {
	joined := frame.LeftJoin(listings, pathField, details, JoinKey)

	var present []Column
	for _, col := range columns {
		if frame.HasField(joined, col.Source) {
			present = append(present, col)
		}
	}

	table := frame.Table{
		Columns: make([]string, 0, len(present)+2),
		Rows:    make([][]any, 0, len(joined)),
	}
	table.Columns = append(table.Columns, ColumnScrapedDate, ColumnScrapedTime)
	for _, col := range present {
		table.Columns = append(table.Columns, col.Name)
	}

	date := chrono.Date(now)
	timestamp := chrono.Timestamp(now)
	for _, record := range joined {
		row := make([]any, 0, len(table.Columns))
		row = append(row, date, timestamp)
		for _, col := range present {
			row = append(row, cell(record, col))
		}
		table.Rows = append(table.Rows, row)
	}

	return table
}

func cell(record frame.Record, col Column) any {
	value := record[col.Source]
	if !col.HTML {
		return value
	}
	if value == nil {
		return ""
	}
	return htmlutil.PlainText(frame.FormatCell(value))
}
