package store

import (
	"errors"
	"testing"
)

func TestMatchConditions(t *testing.T) {
	row := Row{
		"id":       "prop1",
		"location": "Miraflores, Lima",
		"price":    145000.0,
		"status":   "disponible",
		"sale_id":  nil,
	}

	cases := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"eq string", Filter{Eq("status", "disponible")}, true},
		{"eq mismatch", Filter{Eq("status", "vendido")}, false},
		{"eq nil", Filter{Eq("sale_id", nil)}, true},
		{"eq int against float", Filter{Eq("price", 145000)}, true},
		{"in hit", Filter{In("id", []string{"x", "prop1"})}, true},
		{"in empty", Filter{In("id", []string{})}, false},
		{"ilike contains", Filter{ILike("location", "%LIMA%")}, true},
		{"ilike anchored", Filter{ILike("location", "lima%")}, false},
		{"gte", Filter{Gte("price", 100000.0)}, true},
		{"lte", Filter{Lte("price", 100000.0)}, false},
		{"gte on missing column", Filter{Gte("area", 1.0)}, false},
		{"and", Filter{Eq("status", "disponible"), Lte("price", 150000.0)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Match(tc.filter, row); got != tc.want {
				t.Errorf("Match() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCompareTimestamps(t *testing.T) {
	older := "2024-01-10T10:00:00Z"
	newer := "2024-01-10T10:00:00.5Z"
	if Compare(older, newer) >= 0 {
		t.Errorf("expected %s before %s", older, newer)
	}
	if Compare(nil, older) >= 0 {
		t.Error("expected nil to sort first")
	}
}

func TestMessage(t *testing.T) {
	if got := Message(&Error{Message: "constraint violation"}, "fallback"); got != "constraint violation" {
		t.Errorf("got %q", got)
	}
	if got := Message(&Error{}, "Error al actualizar"); got != "Error al actualizar" {
		t.Errorf("got %q", got)
	}
	if got := Message(errors.New("dial tcp: refused"), "x"); got != "dial tcp: refused" {
		t.Errorf("got %q", got)
	}
}

func TestDecodeTypedRecord(t *testing.T) {
	type lead struct {
		ID     string  `json:"id"`
		Name   string  `json:"name"`
		Budget float64 `json:"budget"`
		Stage  *string `json:"pipeline_stage_id"`
	}
	got, err := Decode[lead](Row{"id": "l1", "name": "Ana", "budget": 100, "pipeline_stage_id": nil})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != "l1" || got.Name != "Ana" || got.Budget != 100 || got.Stage != nil {
		t.Errorf("unexpected record %+v", got)
	}
}
