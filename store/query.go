package store

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

type Op string

const (
	OpEq    Op = "eq"
	OpIn    Op = "in"
	OpILike Op = "ilike"
	OpGte   Op = "gte"
	OpLte   Op = "lte"
)

// Cond is one column predicate. Conditions in a Filter are ANDed.
type Cond struct {
	Column string
	Op     Op
	Value  any
}

type Filter []Cond

func Eq(column string, value any) Cond { return Cond{Column: column, Op: OpEq, Value: value} }

// In matches rows whose column equals any of values. An empty set matches
// nothing.
func In[T any](column string, values []T) Cond {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return Cond{Column: column, Op: OpIn, Value: vs}
}

// ILike is a case-insensitive SQL LIKE match (% and _ wildcards).
func ILike(column, pattern string) Cond { return Cond{Column: column, Op: OpILike, Value: pattern} }

func Gte(column string, value any) Cond { return Cond{Column: column, Op: OpGte, Value: value} }

func Lte(column string, value any) Cond { return Cond{Column: column, Op: OpLte, Value: value} }

type Order struct {
	Column string
	Desc   bool
}

func Asc(column string) Order  { return Order{Column: column} }
func Desc(column string) Order { return Order{Column: column, Desc: true} }

// Query describes a select. Empty Columns means every column; zero Limit
// means no limit.
type Query struct {
	Columns []string
	Filter  Filter
	Order   []Order
	Limit   int
}

// Match reports whether row satisfies every condition of f.
func Match(f Filter, row Row) bool {
	for _, c := range f {
		if !c.match(row) {
			return false
		}
	}
	return true
}

func (c Cond) match(row Row) bool {
	got := row[c.Column]
	switch c.Op {
	case OpEq:
		return Equal(got, c.Value)
	case OpIn:
		values, _ := c.Value.([]any)
		for _, v := range values {
			if Equal(got, v) {
				return true
			}
		}
		return false
	case OpILike:
		s, ok := got.(string)
		if !ok {
			return false
		}
		pattern, _ := c.Value.(string)
		return likeRegexp(pattern).MatchString(s)
	case OpGte:
		return got != nil && Compare(got, c.Value) >= 0
	case OpLte:
		return got != nil && Compare(got, c.Value) <= 0
	}
	return false
}

// Equal compares two row values loosely: numbers by value, times by instant,
// everything else by its printed form.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			return fa == fb
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// Compare orders two row values. nil sorts first; numbers, timestamps and
// booleans compare naturally; anything else compares as text.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			return cmp3(fa < fb, fa > fb)
		}
	}
	if ta, ok := timestamp(a); ok {
		if tb, ok := timestamp(b); ok {
			return cmp3(ta.Before(tb), ta.After(tb))
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return cmp3(!ba && bb, ba && !bb)
		}
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	return strings.Compare(sa, sb)
}

func cmp3(less, greater bool) int {
	if less {
		return -1
	}
	if greater {
		return 1
	}
	return 0
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func timestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

func likeRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
