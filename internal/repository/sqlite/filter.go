package sqlite

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/garnizeh/built/internal/apperror"
)

type FilterMode string

const (
	FilterFirst FilterMode = "first"
	FilterLast  FilterMode = "last"
	FilterAll   FilterMode = "all"
)

const (
	DefaultLimit = 5
	MaxLimit     = 100
)

// Filter describes a ListFiltered query. MatchField and MatchValue go
// together; OrderField is only used by FilterLast.
type Filter struct {
	MatchField string
	MatchValue any
	OrderField string
	Mode       FilterMode
	Limit      int
	Offset     int
}

// NewFilter returns a filter for mode with the default page (5 from 0).
func NewFilter(mode FilterMode) Filter {
	return Filter{Mode: mode, Limit: DefaultLimit}
}

func (f Filter) Match(field string, value any) Filter {
	f.MatchField = field
	f.MatchValue = value
	return f
}

func (f Filter) OrderBy(field string) Filter {
	f.OrderField = field
	return f
}

func (f Filter) Page(limit, offset int) Filter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// ListFiltered runs f against T's table. FilterAll returns up to Limit records
// after Offset in insertion order; FilterFirst and FilterLast return at most
// one record.
func ListFiltered[T any, P Record[T]](ctx context.Context, g *Gateway, f Filter) ([]P, error) {
	var problems []string
	if f.Limit < 0 {
		problems = append(problems, "Limit cannot be less than 0")
	}
	if f.Offset < 0 {
		problems = append(problems, "Offset cannot be less than 0")
	}
	if len(problems) > 0 {
		return nil, apperror.DomainInput("%s", strings.Join(problems, " | "))
	}

	if f.Limit > MaxLimit {
		return nil, apperror.DomainInput("Limit must not exceed %d per transaction", MaxLimit).WithStatus(http.StatusUnprocessableEntity)
	}
	if f.Limit == 0 {
		return []P{}, nil
	}

	hasField, hasValue := f.MatchField != "", provided(f.MatchValue)
	if hasField != hasValue {
		return nil, apperror.DomainInput("match value and match field must both be provided together.")
	}

	m := metaFor[T, P]()

	query := fmt.Sprintf(`SELECT %s FROM %s`, m.selectCols, m.table)
	var args []any
	if hasField {
		if !m.has(f.MatchField) {
			return nil, apperror.DomainInput("unknown field %q for %s", f.MatchField, m.entity)
		}
		query += fmt.Sprintf(` WHERE %s = ?`, f.MatchField)
		args = append(args, f.MatchValue)
	}

	switch f.Mode {
	case FilterAll:
		query += ` ORDER BY rowid LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	case FilterFirst:
		query += ` ORDER BY rowid LIMIT 1`
	case FilterLast:
		if f.OrderField == "" || !m.has(f.OrderField) {
			return nil, apperror.DomainInput("unknown order field %q for %s", f.OrderField, m.entity)
		}
		query += fmt.Sprintf(` ORDER BY %s DESC, rowid ASC LIMIT 1`, f.OrderField)
	default:
		return nil, apperror.DomainInput("Invalid filter mode")
	}

	rows, err := g.conn.QueryRows(ctx, query, args...)
	if err != nil {
		return nil, apperror.Internal(err, "Database read error")
	}
	defer rows.Close()

	out := []P{}
	for rows.Next() {
		obj := P(new(T))
		if err := rows.Scan(m.pointers(obj)...); err != nil {
			return nil, apperror.Internal(err, "Database read error")
		}
		out = append(out, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal(err, "Database read error")
	}

	return out, nil
}

// FindOne runs a FilterFirst or FilterLast query and returns nil when nothing matches.
func FindOne[T any, P Record[T]](ctx context.Context, g *Gateway, f Filter) (P, error) {
	if f.Mode != FilterFirst && f.Mode != FilterLast {
		return nil, apperror.DomainInput("FindOne requires mode %q or %q", FilterFirst, FilterLast)
	}
	if f.Limit == 0 {
		f.Limit = 1
	}

	out, err := ListFiltered[T, P](ctx, g, f)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}

	return out[0], nil
}

// provided reports whether v counts as a supplied match value.
func provided(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case uuid.UUID:
		return x != uuid.Nil
	case *uuid.UUID:
		return x != nil && *x != uuid.Nil
	default:
		return true
	}
}
