// Package store defines the remote store capability the CRM state is
// synchronized against: table-shaped collections of JSON-like rows with a
// small filter vocabulary and insert notifications.
package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Row is a single record as the remote store sees it.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the value under key rendered as a string, or "" when absent.
func (r Row) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Reference declares that Child.Column points at Parent.id. A parent row
// still referenced by a child cannot be deleted.
type Reference struct {
	Child, Column, Parent string
}

// Unsubscribe stops a realtime subscription. Calling it twice is harmless.
type Unsubscribe func()

// Remote is the capability consumed by the state controller and the REST
// facade.
type Remote interface {
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	// Insert writes one row and returns it as stored.
	Insert(ctx context.Context, table string, row Row) (Row, error)
	// Update applies patch to the rows matching filter and returns the first
	// updated row. found is false when nothing matched, which is not an error.
	Update(ctx context.Context, table string, filter Filter, patch Row) (row Row, found bool, err error)
	Delete(ctx context.Context, table string, filter Filter) error
	// Subscribe calls onInsert for every row inserted into table that matches
	// filter, until ctx is done or the returned Unsubscribe is called.
	Subscribe(ctx context.Context, table string, filter Filter, onInsert func(Row)) (Unsubscribe, error)
}

// Encode converts a typed record (or any JSON-marshalable value) into a Row.
func Encode(v any) (Row, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	var row Row
	if err := json.Unmarshal(b, &row); err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	return row, nil
}

// Decode converts a Row into a typed record.
func Decode[T any](row Row) (T, error) {
	var out T
	b, err := json.Marshal(row)
	if err != nil {
		return out, fmt.Errorf("decode row: %w", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode row: %w", err)
	}
	return out, nil
}

// DecodeAll converts every row, stopping at the first failure.
func DecodeAll[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := Decode[T](row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
