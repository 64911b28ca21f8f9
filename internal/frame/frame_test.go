package frame

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestFlatten(t *testing.T) {
	record := Flatten(decode(t, `{
		"jobPostingInfo": {
			"title": "Analyst",
			"additionalLocations": ["Bethlehem, PA", "Remote"],
			"country": {"descriptor": "United States"}
		},
		"hiringOrganization": {},
		"similarJobs": null
	}`))

	expected := Record{
		"jobPostingInfo.title":              "Analyst",
		"jobPostingInfo.additionalLocations": []any{"Bethlehem, PA", "Remote"},
		"jobPostingInfo.country.descriptor":  "United States",
		"hiringOrganization":                 map[string]any{},
		"similarJobs":                        nil,
	}
	if diff := cmp.Diff(expected, record); diff != "" {
		t.Fatal(diff)
	}
	require.True(t, record.Has("similarJobs"))
	require.False(t, record.Has("jobPostingInfo"))
}

func TestDropDuplicates(t *testing.T) {
	records := []Record{
		{"externalPath": "/job/1", "bulletFields": []any{"R1"}},
		{"externalPath": "/job/2", "bulletFields": []any{"R2"}},
		{"externalPath": "/job/3", "bulletFields": []any{"R1"}},
		{"externalPath": "/job/4"},
		{"externalPath": "/job/5", "bulletFields": nil},
		{"externalPath": "/job/6", "bulletFields": []any{"R3"}},
	}

	once := DropDuplicates(records, "bulletFields")
	paths := []string{}
	for _, r := range once {
		paths = append(paths, r.String("externalPath"))
	}
	require.Equal(t, []string{"/job/1", "/job/2", "/job/4", "/job/6"}, paths)

	twice := DropDuplicates(once, "bulletFields")
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatal(diff)
	}

	require.Empty(t, DropDuplicates(nil, "bulletFields"))
}

func TestKey(t *testing.T) {
	require.Equal(t, Key(nil), Key(Record{}["missing"]))
	require.Equal(t, Key([]any{"a", "b"}), Key([]any{"a", "b"}))
	require.NotEqual(t, Key([]any{"a", "b"}), Key([]any{"b", "a"}))
	require.NotEqual(t, Key("1"), Key(float64(1)))
	require.Equal(t, Key(map[string]any{"a": 1.0, "b": 2.0}), Key(map[string]any{"b": 2.0, "a": 1.0}))
}

func TestLeftJoin(t *testing.T) {
	left := []Record{
		{"externalPath": "/job/1", "title": "A"},
		{"externalPath": "/job/2", "title": "B"},
		{"externalPath": "/job/3", "title": "C"},
		{"title": "no path"},
	}
	right := []Record{
		{"perma": "/job/3", "jobPostingInfo.title": "C full"},
		{"perma": "/job/1", "jobPostingInfo.title": "A full", "title": "ignored"},
		{"perma": "/job/1", "jobPostingInfo.title": "A duplicate"},
		{"perma": "/job/9", "jobPostingInfo.title": "orphan"},
	}

	joined := LeftJoin(left, "externalPath", right, "perma")

	expected := []Record{
		{"externalPath": "/job/1", "title": "A", "perma": "/job/1", "jobPostingInfo.title": "A full"},
		{"externalPath": "/job/2", "title": "B"},
		{"externalPath": "/job/3", "title": "C", "perma": "/job/3", "jobPostingInfo.title": "C full"},
		{"title": "no path"},
	}
	if diff := cmp.Diff(expected, joined); diff != "" {
		t.Fatal(diff)
	}

	// the inputs are not mutated
	require.Len(t, left[0], 2)
}

func TestFormatCell(t *testing.T) {
	cases := []struct {
		input    any
		expected string
	}{
		{input: nil, expected: ""},
		{input: "x", expected: "x"},
		{input: true, expected: "true"},
		{input: float64(42), expected: "42"},
		{input: 1.5, expected: "1.5"},
		{input: []any{"Bethlehem, PA", "Remote"}, expected: "Bethlehem, PA, Remote"},
		{input: []any{}, expected: ""},
		{input: map[string]any{"a": "b"}, expected: `{"a":"b"}`},
	}

	for _, test := range cases {
		require.Equal(t, test.expected, FormatCell(test.input))
	}
}

func TestStringRows(t *testing.T) {
	table := Table{
		Columns: []string{"Job Title", "Additional Locations"},
		Rows: [][]any{
			{"Analyst", []any{"NYC", "Remote"}},
			{"Engineer", nil},
		},
	}
	require.Equal(t, 2, table.Len())
	require.Equal(t, [][]string{{"Analyst", "NYC, Remote"}, {"Engineer", ""}}, table.StringRows())
}
