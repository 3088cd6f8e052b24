package book

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is one row of the books table. Columns keep the order the store
// returned them in; every column is present, NULL included.
type Record struct {
	columns []string
	values  map[string]any
}

// NewRecord pairs column names with a scanned row. Values are reduced to
// JSON scalars: string, int64, float64, bool or nil.
func NewRecord(columns []string, row []any) Record {
	r := Record{
		columns: make([]string, 0, len(columns)),
		values:  make(map[string]any, len(columns)),
	}
	for i, col := range columns {
		var v any
		if i < len(row) {
			v = scalar(row[i])
		}
		if _, dup := r.values[col]; !dup {
			r.columns = append(r.columns, col)
		}
		r.values[col] = v
	}
	return r
}

// Columns returns the column names in store order.
func (r Record) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Get returns the value for col and whether the column exists.
func (r Record) Get(col string) (any, bool) {
	v, ok := r.values[col]
	return v, ok
}

// String returns the value of col as a string, or "" when it is NULL or
// missing.
func (r Record) String(col string) string {
	v, ok := r.values[col]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Len returns the number of columns.
func (r Record) Len() int { return len(r.columns) }

// MarshalJSON writes the record as an object with keys in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	stream := jsonAPI.BorrowStream(nil)
	defer jsonAPI.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, col := range r.columns {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(col)
		stream.WriteVal(r.values[col])
	}
	stream.WriteObjectEnd()

	if stream.Error != nil {
		return nil, stream.Error
	}
	out := make([]byte, len(stream.Buffer()))
	copy(out, stream.Buffer())
	return out, nil
}

// UnmarshalJSON accepts any JSON object; key order follows the input.
func (r *Record) UnmarshalJSON(data []byte) error {
	iter := jsonAPI.BorrowIterator(data)
	defer jsonAPI.ReturnIterator(iter)

	var columns []string
	var row []any
	iter.ReadMapCB(func(it *jsoniter.Iterator, field string) bool {
		columns = append(columns, field)
		row = append(row, it.Read())
		return true
	})
	if iter.Error != nil {
		return iter.Error
	}
	*r = NewRecord(columns, row)
	return nil
}

func scalar(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case string, bool, int64, float64:
		return val
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}
