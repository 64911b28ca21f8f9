// Package frame holds the small amount of table plumbing the harvest needs:
// flattening decoded JSON objects into records, dropping duplicates, joining
// two record sets and rendering cells for the flat file formats.
package frame

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is one flattened JSON object, nested objects are addressed with dot separated keys
// (ex. `jobPostingInfo.title`). Arrays are kept as values.
type Record map[string]any

// Flatten turns a decoded JSON object into a Record.
func Flatten(obj map[string]any) Record {
	out := Record{}
	flattenInto(out, "", obj)
	return out
}

func flattenInto(out Record, prefix string, obj map[string]any) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		nested, ok := v.(map[string]any)
		if ok && len(nested) > 0 {
			flattenInto(out, key, nested)
			continue
		}
		out[key] = v
	}
}

// Has reports whether the record carries the field at all, a null value still counts.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// String renders the field as text, a missing field is the empty string.
func (r Record) String(field string) string {
	return FormatCell(r[field])
}

// Key returns a comparable identity for any decoded JSON value,
// two values share a key iff they encode to the same JSON.
// A missing value and null share the key "null".
func Key(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(encoded)
}

// DropDuplicates keeps the first record for every distinct value of `field`,
// preserving the order of first occurrence. Records without the field are
// considered equal to each other.
func DropDuplicates(records []Record, field string) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		key := Key(r[field])
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// HasField reports whether any record carries the field.
func HasField(records []Record, field string) bool {
	for _, r := range records {
		if r.Has(field) {
			return true
		}
	}
	return false
}

// LeftJoin merges every left record with the first right record whose
// `rightKey` equals the left record's `leftKey`. Every left record is kept
// exactly once and in order, unmatched records are copied as they are.
// On a field present in both sides the left value wins.
func LeftJoin(left []Record, leftKey string, right []Record, rightKey string) []Record {
	index := make(map[string]Record, len(right))
	for _, r := range right {
		if !r.Has(rightKey) {
			continue
		}
		key := Key(r[rightKey])
		if _, exists := index[key]; exists {
			continue
		}
		index[key] = r
	}

	out := make([]Record, len(left))
	for i, l := range left {
		merged := make(Record, len(l))
		for k, v := range l {
			merged[k] = v
		}
		if l.Has(leftKey) {
			if match, ok := index[Key(l[leftKey])]; ok {
				for k, v := range match {
					if _, exists := merged[k]; !exists {
						merged[k] = v
					}
				}
			}
		}
		out[i] = merged
	}
	return out
}

// Table is an ordered set of named columns over rows of cells.
type Table struct {
	Columns []string
	Rows    [][]any
}

func (t Table) Len() int {
	return len(t.Rows)
}

// StringRows renders every cell with FormatCell.
func (t Table) StringRows() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = FormatCell(cell)
		}
		out[i] = cells
	}
	return out
}

// FormatCell renders a decoded JSON value as a single line of text:
// null is empty, arrays are joined by ", " and objects are written as JSON.
func FormatCell(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case json.Number:
		return value.String()
	case []any:
		parts := make([]string, 0, len(value))
		for _, item := range value {
			parts = append(parts, FormatCell(item))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(value, ", ")
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(encoded)
	}
}
