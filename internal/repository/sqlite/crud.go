package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/garnizeh/built/internal/apperror"
)

// Create inserts a new record in one transaction and returns it as stored
// after commit. A zero key is replaced by a fresh UUID; a key that is already
// taken is a Conflict like any other unique column.
func Create[T any, P Record[T]](ctx context.Context, g *Gateway, obj P) (P, error) {
	m := metaFor[T, P]()
	if obj == nil {
		return nil, apperror.Internal(nil, "cannot persist a nil %s", m.entity)
	}

	if obj.Key() == uuid.Nil {
		obj.SetKey(uuid.New())
	}

	if err := g.write(ctx, m, obj, m.insert, m.values(obj)...); err != nil {
		return nil, err
	}

	return Read[T, P](ctx, g, obj.Key(), true)
}

// Save writes every column of an existing record back to the store. The
// record must already exist.
func Save[T any, P Record[T]](ctx context.Context, g *Gateway, obj P) (P, error) {
	m := metaFor[T, P]()
	if obj == nil {
		return nil, apperror.Internal(nil, "cannot persist a nil %s", m.entity)
	}

	if err := g.write(ctx, m, obj, m.update, m.updateArgs(obj)...); err != nil {
		return nil, err
	}

	return Read[T, P](ctx, g, obj.Key(), true)
}

// write validates obj and runs query in its own transaction. A statement that
// touches no row means the record is gone.
func (g *Gateway) write(ctx context.Context, m *tableMeta, obj any, query string, args ...any) error {
	if err := g.validateRecord(m, obj); err != nil {
		return err
	}

	tx, err := g.conn.BeginTx(ctx)
	if err != nil {
		return apperror.Internal(err, "Database error while saving %s", m.entity)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		_ = tx.Rollback()
		return g.classifyWrite(m, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		_ = tx.Rollback()
		return apperror.NotFound("%s with id %s not found", m.entity, args[len(args)-1])
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return g.classifyWrite(m, err)
	}

	return nil
}

// Read looks a record up by primary key. A missing record is a NotFound error
// when raiseOnMissing is set and (nil, nil) otherwise.
func Read[T any, P Record[T]](ctx context.Context, g *Gateway, id uuid.UUID, raiseOnMissing bool) (P, error) {
	m := metaFor[T, P]()

	obj := P(new(T))
	err := g.conn.QueryRow(ctx, m.selectByID, id).Scan(m.pointers(obj)...)
	if errors.Is(err, sql.ErrNoRows) {
		if raiseOnMissing {
			return nil, apperror.NotFound("%s with id %s not found", m.entity, id)
		}
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Internal(err, "Database read error")
	}

	return obj, nil
}

// Update applies the supplied fields of patch to the stored record and
// persists the merge through Save. The key cannot be changed by a patch.
func Update[T any, P Record[T]](ctx context.Context, g *Gateway, id uuid.UUID, patch Patch[T]) (P, error) {
	obj, err := Read[T, P](ctx, g, id, true)
	if err != nil {
		return nil, err
	}

	if patch != nil {
		patch.Apply((*T)(obj))
	}
	obj.SetKey(id)

	return Save[T, P](ctx, g, obj)
}

// Delete removes the record with the given key. The record must exist.
func Delete[T any, P Record[T]](ctx context.Context, g *Gateway, id uuid.UUID) (bool, error) {
	m := metaFor[T, P]()

	if _, err := Read[T, P](ctx, g, id, true); err != nil {
		return false, err
	}

	tx, err := g.conn.BeginTx(ctx)
	if err != nil {
		return false, apperror.Internal(err, "Database error while deleting %s", m.entity)
	}

	if _, err := tx.ExecContext(ctx, m.deleteByID, id); err != nil {
		_ = tx.Rollback()
		return false, apperror.Internal(err, "Database error while deleting %s", m.entity)
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return false, apperror.Internal(err, "Database error while deleting %s", m.entity)
	}

	return true, nil
}

// DeleteWhere removes every record whose column field equals value and
// returns how many rows went away.
func DeleteWhere[T any, P Record[T]](ctx context.Context, g *Gateway, field string, value any) (int64, error) {
	m := metaFor[T, P]()
	if !m.has(field) {
		return 0, apperror.DomainInput("unknown field %q for %s", field, m.entity)
	}
	if !provided(value) {
		return 0, apperror.DomainInput("a value for %q is required", field)
	}

	tx, err := g.conn.BeginTx(ctx)
	if err != nil {
		return 0, apperror.Internal(err, "Database error while deleting %s", m.entity)
	}

	res, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, m.table, field), value)
	if err != nil {
		_ = tx.Rollback()
		return 0, apperror.Internal(err, "Database error while deleting %s", m.entity)
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return 0, apperror.Internal(err, "Database error while deleting %s", m.entity)
	}

	return res.RowsAffected()
}
