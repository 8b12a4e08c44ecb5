package sqlite

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/garnizeh/built/internal/apperror"
	"github.com/garnizeh/built/internal/db"
)

// Record is the capability every persisted entity exposes to the gateway:
// a pointer to T with a table name and a UUID primary key.
type Record[T any] interface {
	*T
	Table() string
	Key() uuid.UUID
	SetKey(uuid.UUID)
}

// Patch merges the explicitly supplied fields of a partial update into T.
type Patch[T any] interface {
	Apply(*T)
}

// Gateway is the generic persistence layer over the sqlite store. One
// Gateway is built at startup and shared; each call runs in its own
// transaction or single statement.
type Gateway struct {
	conn     *db.DB
	validate *validator.Validate
	logger   *slog.Logger
}

func New(conn *db.DB, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &Gateway{conn: conn, validate: v, logger: logger}
}

// tableMeta is the column mapping of an entity type, derived from its db tags.
type tableMeta struct {
	entity  string
	table   string
	columns []string
	fields  [][]int
	colSet  map[string]struct{}

	selectCols string
	selectByID string
	insert     string
	update     string
	deleteByID string
}

var metaCache sync.Map

func metaFor[T any, P Record[T]]() *tableMeta {
	typ := reflect.TypeFor[T]()
	if m, ok := metaCache.Load(typ); ok {
		return m.(*tableMeta)
	}

	m := &tableMeta{
		entity: typ.Name(),
		table:  P(new(T)).Table(),
		colSet: make(map[string]struct{}),
	}
	for _, f := range reflect.VisibleFields(typ) {
		col := f.Tag.Get("db")
		if col == "" || col == "-" || !f.IsExported() {
			continue
		}
		m.columns = append(m.columns, col)
		m.fields = append(m.fields, f.Index)
		m.colSet[col] = struct{}{}
	}
	if _, ok := m.colSet["id"]; !ok {
		panic(fmt.Sprintf("sqlite: %s has no db:\"id\" column", m.entity))
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(m.columns)), ", ")
	sets := make([]string, 0, len(m.columns))
	for _, c := range m.columns {
		if c == "id" {
			continue
		}
		sets = append(sets, c+" = ?")
	}

	m.selectCols = strings.Join(m.columns, ", ")
	m.selectByID = fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, m.selectCols, m.table)
	m.insert = fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, m.table, m.selectCols, placeholders)
	m.update = fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, m.table, strings.Join(sets, ", "))
	m.deleteByID = fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, m.table)

	actual, _ := metaCache.LoadOrStore(typ, m)
	return actual.(*tableMeta)
}

func (m *tableMeta) has(column string) bool {
	_, ok := m.colSet[column]
	return ok
}

// values returns obj's column values in column order.
func (m *tableMeta) values(obj any) []any {
	v := reflect.ValueOf(obj).Elem()
	out := make([]any, len(m.fields))
	for i, idx := range m.fields {
		out[i] = v.FieldByIndex(idx).Interface()
	}
	return out
}

// updateArgs returns the non-key column values followed by the key, matching
// the placeholders of the update statement.
func (m *tableMeta) updateArgs(obj any) []any {
	vals := m.values(obj)
	out := make([]any, 0, len(vals))
	var key any
	for i, c := range m.columns {
		if c == "id" {
			key = vals[i]
			continue
		}
		out = append(out, vals[i])
	}
	return append(out, key)
}

// pointers returns scan destinations for obj in column order.
func (m *tableMeta) pointers(obj any) []any {
	v := reflect.ValueOf(obj).Elem()
	out := make([]any, len(m.fields))
	for i, idx := range m.fields {
		out[i] = v.FieldByIndex(idx).Addr().Interface()
	}
	return out
}

func (g *Gateway) validateRecord(m *tableMeta, obj any) error {
	err := g.validate.Struct(obj)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
		}
		return apperror.Validation(err, "%s validation failed: %s", m.entity, strings.Join(msgs, "; "))
	}

	return apperror.Validation(err, "%s validation failed", m.entity)
}

// classifyWrite maps a failed insert/update/commit to the error taxonomy.
func (g *Gateway) classifyWrite(m *tableMeta, err error) error {
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return apperror.Conflict(err, "%s", conflictMessage(m, se.Error()))
		case sqlite3.SQLITE_CONSTRAINT_NOTNULL, sqlite3.SQLITE_CONSTRAINT_CHECK:
			return apperror.Validation(err, "%s violates a schema constraint", m.entity)
		}

		// extended codes disabled: fall back to the primary code and message
		if se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			msg := se.Error()
			if strings.Contains(msg, "UNIQUE constraint failed") {
				return apperror.Conflict(err, "%s", conflictMessage(m, msg))
			}
			return apperror.Validation(err, "%s violates a schema constraint", m.entity)
		}
	}

	g.logger.Error("store write failed", slog.String("entity", m.entity), slog.Any("err", err))
	return apperror.Internal(err, "Database error while saving %s", m.entity)
}

// conflictMessage turns "UNIQUE constraint failed: users.email (2067)" into
// "User with this email already exists".
func conflictMessage(m *tableMeta, msg string) string {
	const marker = "constraint failed: "
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return fmt.Sprintf("%s already exists", m.entity)
	}

	rest := msg[i+len(marker):]
	if j := strings.Index(rest, " ("); j >= 0 {
		rest = rest[:j]
	}

	var cols []string
	for _, part := range strings.Split(rest, ",") {
		part = strings.TrimSpace(part)
		if k := strings.LastIndex(part, "."); k >= 0 {
			part = part[k+1:]
		}
		if part != "" {
			cols = append(cols, part)
		}
	}
	if len(cols) == 0 {
		return fmt.Sprintf("%s already exists", m.entity)
	}

	return fmt.Sprintf("%s with this %s already exists", m.entity, strings.Join(cols, " and "))
}
