package export

import (
	"context"
	"jobharvest/internal/frame"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

var columnWidths = []float64{12, 18, 35, 60, 20, 20, 12, 15, 15, 50}

func thinBorders(color string) []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: color, Style: 1},
		{Type: "right", Color: color, Style: 1},
		{Type: "top", Color: color, Style: 1},
		{Type: "bottom", Color: color, Style: 1},
	}
}

var headerStyle = &excelize.Style{
	Font: &excelize.Font{Family: "Arial", Size: 11, Bold: true, Color: "#FFFFFF"},
	Fill: excelize.Fill{Type: "pattern", Color: []string{"#366092"}, Pattern: 1},
	Alignment: &excelize.Alignment{
		Horizontal: "center",
		Vertical:   "center",
		WrapText:   true,
	},
	Border: thinBorders("#D3D3D3"),
}

var cellStyle = &excelize.Style{
	Font:      &excelize.Font{Family: "Arial", Size: 10},
	Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	Border:    thinBorders("#D3D3D3"),
}

func writeExcel(_ context.Context, path string, table frame.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(table.Columns))
	for i, col := range table.Columns {
		header[i] = col
	}
	err := f.SetSheetRow(sheetName, "A1", &header)
	if err != nil {
		return err
	}
	for i, row := range table.StringRows() {
		cells := make([]any, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		start, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		err = f.SetSheetRow(sheetName, start, &cells)
		if err != nil {
			return err
		}
	}

	err = styleSheet(f, len(table.Columns), table.Len())
	if err != nil {
		return err
	}

	return f.SaveAs(path)
}

func styleSheet(f *excelize.File, columns, rows int) error {
	headerID, err := f.NewStyle(headerStyle)
	if err != nil {
		return err
	}
	cellID, err := f.NewStyle(cellStyle)
	if err != nil {
		return err
	}

	if columns > 0 {
		lastHeader, err := excelize.CoordinatesToCellName(columns, 1)
		if err != nil {
			return err
		}
		err = f.SetCellStyle(sheetName, "A1", lastHeader, headerID)
		if err != nil {
			return err
		}
	}
	if columns > 0 && rows > 0 {
		lastCell, err := excelize.CoordinatesToCellName(columns, rows+1)
		if err != nil {
			return err
		}
		err = f.SetCellStyle(sheetName, "A2", lastCell, cellID)
		if err != nil {
			return err
		}
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		err = f.SetColWidth(sheetName, col, col, width)
		if err != nil {
			return err
		}
	}

	err = f.SetRowHeight(sheetName, 1, 30)
	if err != nil {
		return err
	}

	return f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
