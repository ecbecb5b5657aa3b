package postgres

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"immoflow/store"
)

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func quote(name string) (string, error) {
	if !identifier.MatchString(name) {
		return "", &store.Error{Code: store.CodeInvalidQuery, Message: fmt.Sprintf("invalid identifier %q", name)}
	}
	return `"` + name + `"`, nil
}

func buildWhere(f store.Filter) (string, []any, error) {
	if len(f) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(f))
	var args []any
	for _, c := range f {
		col, err := quote(c.Column)
		if err != nil {
			return "", nil, err
		}
		switch c.Op {
		case store.OpEq:
			if c.Value == nil {
				parts = append(parts, col+" IS NULL")
				continue
			}
			parts = append(parts, col+" = ?")
			args = append(args, c.Value)
		case store.OpIn:
			values, _ := c.Value.([]any)
			if len(values) == 0 {
				parts = append(parts, "FALSE")
				continue
			}
			marks := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
			parts = append(parts, col+" IN ("+marks+")")
			args = append(args, values...)
		case store.OpILike:
			parts = append(parts, col+" ILIKE ?")
			args = append(args, c.Value)
		case store.OpGte:
			parts = append(parts, col+" >= ?")
			args = append(args, c.Value)
		case store.OpLte:
			parts = append(parts, col+" <= ?")
			args = append(args, c.Value)
		default:
			return "", nil, &store.Error{Code: store.CodeInvalidQuery, Message: fmt.Sprintf("unsupported operator %q", c.Op)}
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func buildSelect(table string, q store.Query) (string, []any, error) {
	tbl, err := quote(table)
	if err != nil {
		return "", nil, err
	}
	cols := "*"
	if len(q.Columns) > 0 {
		quoted := make([]string, len(q.Columns))
		for i, c := range q.Columns {
			if quoted[i], err = quote(c); err != nil {
				return "", nil, err
			}
		}
		cols = strings.Join(quoted, ", ")
	}
	where, args, err := buildWhere(q.Filter)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT " + cols + " FROM " + tbl + where)
	if len(q.Order) > 0 {
		terms := make([]string, len(q.Order))
		for i, o := range q.Order {
			col, err := quote(o.Column)
			if err != nil {
				return "", nil, err
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			terms[i] = col + " " + dir
		}
		b.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
	}
	return b.String(), args, nil
}

func sortedKeys(row store.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildInsert(table string, row store.Row) (string, []any, error) {
	tbl, err := quote(table)
	if err != nil {
		return "", nil, err
	}
	if len(row) == 0 {
		return "INSERT INTO " + tbl + " DEFAULT VALUES RETURNING *", nil, nil
	}
	keys := sortedKeys(row)
	cols := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		if cols[i], err = quote(k); err != nil {
			return "", nil, err
		}
		args[i] = row[k]
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")
	return "INSERT INTO " + tbl + " (" + strings.Join(cols, ", ") + ") VALUES (" + marks + ") RETURNING *", args, nil
}

func buildUpdate(table string, f store.Filter, patch store.Row) (string, []any, error) {
	tbl, err := quote(table)
	if err != nil {
		return "", nil, err
	}
	if len(f) == 0 {
		return "", nil, &store.Error{Code: store.CodeInvalidQuery, Message: "update requires a filter"}
	}
	keys := sortedKeys(patch)
	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		col, err := quote(k)
		if err != nil {
			return "", nil, err
		}
		sets[i] = col + " = ?"
		args = append(args, patch[k])
	}
	where, whereArgs, err := buildWhere(f)
	if err != nil {
		return "", nil, err
	}
	return "UPDATE " + tbl + " SET " + strings.Join(sets, ", ") + where + " RETURNING *", append(args, whereArgs...), nil
}

func buildDelete(table string, f store.Filter) (string, []any, error) {
	tbl, err := quote(table)
	if err != nil {
		return "", nil, err
	}
	if len(f) == 0 {
		return "", nil, &store.Error{Code: store.CodeInvalidQuery, Message: "delete requires a filter"}
	}
	where, args, err := buildWhere(f)
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM " + tbl + where, args, nil
}
