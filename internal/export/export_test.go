package export

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"jobharvest/internal/components/telemetry"
	"jobharvest/internal/frame"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable() frame.Table {
	return frame.Table{
		Columns: []string{"Scraped Date", "Scraped Time", "Job Title", "Additional Locations", "Job ID"},
		Rows: [][]any{
			{"2024-03-07", "2024-03-07_09-00-00", "Analyst <Data>", []any{"NYC", "Remote"}, "R0001"},
			{"2024-03-07", "2024-03-07_09-00-00", "Engineer, \"Platform\"", nil, "R0002"},
		},
	}
}

func TestParseFormats(t *testing.T) {
	formats, err := ParseFormats(nil)
	require.NoError(t, err)
	require.Equal(t, DefaultFormats, formats)

	formats, err = ParseFormats([]string{"csv", "sqlite", "csv"})
	require.NoError(t, err)
	require.Equal(t, []Format{FormatCSV, FormatSQLite}, formats)

	_, err = ParseFormats([]string{"parquet"})
	require.Error(t, err)
}

func TestFileName(t *testing.T) {
	require.Equal(t, "Acme_Jobs_2024-03-07.xlsx", FileName("Acme_Jobs", "2024-03-07", FormatExcel))
	require.Equal(t, "Acme_Jobs_2024-03-07.db", FileName("Acme_Jobs", "2024-03-07", FormatSQLite))
}

func exportAll(t *testing.T) (string, []string) {
	dir := filepath.Join(t.TempDir(), "output")
	written, err := Export(context.Background(), sampleTable(), Options{
		Folder:  dir,
		Prefix:  "Acme_Jobs",
		Date:    "2024-03-07",
		Formats: []Format{FormatExcel, FormatCSV, FormatJSON, FormatSQLite},
	}, &telemetry.Recorder{})
	require.NoError(t, err)
	return dir, written
}

func TestExportWritesEveryFormat(t *testing.T) {
	dir, written := exportAll(t)
	require.Equal(t, []string{
		filepath.Join(dir, "Acme_Jobs_2024-03-07.xlsx"),
		filepath.Join(dir, "Acme_Jobs_2024-03-07.csv"),
		filepath.Join(dir, "Acme_Jobs_2024-03-07.json"),
		filepath.Join(dir, "Acme_Jobs_2024-03-07.db"),
	}, written)
}

func TestExcel(t *testing.T) {
	dir, _ := exportAll(t)

	f, err := excelize.OpenFile(filepath.Join(dir, "Acme_Jobs_2024-03-07.xlsx"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"Scraped Date", "Scraped Time", "Job Title", "Additional Locations", "Job ID"},
		{"2024-03-07", "2024-03-07_09-00-00", "Analyst <Data>", "NYC, Remote", "R0001"},
		{"2024-03-07", "2024-03-07_09-00-00", "Engineer, \"Platform\"", "", "R0002"},
	}, rows)

	width, err := f.GetColWidth(sheetName, "D")
	require.NoError(t, err)
	require.Equal(t, 60.0, width)

	height, err := f.GetRowHeight(sheetName, 1)
	require.NoError(t, err)
	require.Equal(t, 30.0, height)

	panes, err := f.GetPanes(sheetName)
	require.NoError(t, err)
	require.True(t, panes.Freeze)
	require.Equal(t, "A2", panes.TopLeftCell)
}

func TestCSV(t *testing.T) {
	dir, _ := exportAll(t)

	contents, err := os.ReadFile(filepath.Join(dir, "Acme_Jobs_2024-03-07.csv"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(contents), bom))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(contents), bom))).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"Scraped Date", "Scraped Time", "Job Title", "Additional Locations", "Job ID"},
		{"2024-03-07", "2024-03-07_09-00-00", "Analyst <Data>", "NYC, Remote", "R0001"},
		{"2024-03-07", "2024-03-07_09-00-00", "Engineer, \"Platform\"", "", "R0002"},
	}, records)
}

func TestJSON(t *testing.T) {
	dir, _ := exportAll(t)

	contents, err := os.ReadFile(filepath.Join(dir, "Acme_Jobs_2024-03-07.json"))
	require.NoError(t, err)

	// keys keep the column order and html is not escaped
	text := string(contents)
	require.Less(t, strings.Index(text, `"Scraped Date"`), strings.Index(text, `"Job Title"`))
	require.Less(t, strings.Index(text, `"Job Title"`), strings.Index(text, `"Job ID"`))
	require.Contains(t, text, `"Analyst <Data>"`)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(contents, &rows))
	require.Len(t, rows, 2)
	require.Equal(t, []any{"NYC", "Remote"}, rows[0]["Additional Locations"])
	require.Nil(t, rows[1]["Additional Locations"])
	require.Equal(t, "R0002", rows[1]["Job ID"])
}

func TestSQLite(t *testing.T) {
	dir, _ := exportAll(t)

	db, err := sql.Open("sqlite", filepath.Join(dir, "Acme_Jobs_2024-03-07.db"))
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM jobs").Scan(&count))
	require.Equal(t, 2, count)

	var title, locations string
	require.NoError(t, db.QueryRow(
		`SELECT "Job Title", "Additional Locations" FROM jobs WHERE "Job ID" = ?`, "R0001",
	).Scan(&title, &locations))
	require.Equal(t, "Analyst <Data>", title)
	require.Equal(t, "NYC, Remote", locations)

	// a second export on the same day replaces the file instead of appending
	_, err = Export(context.Background(), sampleTable(), Options{
		Folder:  dir,
		Prefix:  "Acme_Jobs",
		Date:    "2024-03-07",
		Formats: []Format{FormatSQLite},
	}, &telemetry.Recorder{})
	require.NoError(t, err)
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM jobs").Scan(&count))
	require.Equal(t, 2, count)
}

func TestExportIsolatesFailures(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	require.NoError(t, os.MkdirAll(dir, 0777))
	// a directory where the csv file should go makes that one format fail
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Acme_Jobs_2024-03-07.csv"), 0777))

	rec := &telemetry.Recorder{}
	written, err := Export(context.Background(), sampleTable(), Options{
		Folder:  dir,
		Prefix:  "Acme_Jobs",
		Date:    "2024-03-07",
		Formats: []Format{FormatCSV, FormatJSON},
	}, rec)
	require.Error(t, err)
	require.Contains(t, err.Error(), "export csv")
	require.Equal(t, []string{filepath.Join(dir, "Acme_Jobs_2024-03-07.json")}, written)
	require.Len(t, rec.Find("broken", report_export_write), 1)
}
