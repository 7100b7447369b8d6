package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kkkppp/p2proto/internal/domain/schema"
	"github.com/kkkppp/p2proto/pkg/auth"
	appErrors "github.com/kkkppp/p2proto/pkg/errors"
	"github.com/kkkppp/p2proto/pkg/fieldtypes"
	"github.com/kkkppp/p2proto/pkg/query"
	"github.com/kkkppp/p2proto/pkg/utils"
)

// RecordRepository handles dynamic CRUD operations for any table.
// It works only from the table metadata and does not care where the table
// came from. Every method runs a single statement on the context's
// transaction when there is one, otherwise on the pool.
type RecordRepository struct {
	tm  *TransactionManager
	now func() time.Time
}

// NewRecordRepository creates a new RecordRepository
func NewRecordRepository(tm *TransactionManager) *RecordRepository {
	return &RecordRepository{tm: tm, now: time.Now}
}

func (r *RecordRepository) dialect() query.Dialect {
	return r.tm.Connection().Dialect()
}

// FindAll returns every row of the table ordered by primary key
func (r *RecordRepository) FindAll(ctx context.Context, table *schema.TableMetadata) ([]query.Record, error) {
	return r.find(ctx, table, nil, 0)
}

// FindBy returns the rows matching the criterion ordered by primary key
func (r *RecordRepository) FindBy(ctx context.Context, table *schema.TableMetadata, criterion query.Criterion) ([]query.Record, error) {
	return r.find(ctx, table, criterion, 0)
}

// FindByID returns the row with the given primary key, or nil when there is none
func (r *RecordRepository) FindByID(ctx context.Context, table *schema.TableMetadata, id interface{}) (query.Record, error) {
	rows, err := r.find(ctx, table, query.Eq(table.PrimaryKey().Name, id), 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *RecordRepository) find(ctx context.Context, table *schema.TableMetadata, criterion query.Criterion, limit int) ([]query.Record, error) {
	d := r.dialect()
	fields, err := table.SelectFields(d)
	if err != nil {
		return nil, err
	}
	where, err := table.BuildWhereFor(d, criterion)
	if err != nil {
		return nil, err
	}

	b := query.From(d, table.Name()).
		Select(fields...).
		Where(where).
		OrderBy(table.PrimaryKey().Name, "ASC")
	if limit > 0 {
		b.Limit(limit)
	}
	stmt, err := b.Build()
	if err != nil {
		return nil, err
	}
	sqlText, args, err := stmt.Bind(d)
	if err != nil {
		return nil, err
	}

	rows, err := r.tm.Executor(ctx).QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, appErrors.NewDatabaseError("select from "+table.Name(), err)
	}
	defer rows.Close()

	records, err := query.ScanRows(rows)
	if err != nil {
		return nil, appErrors.NewDatabaseError("select from "+table.Name(), err)
	}
	return records, nil
}

// Insert writes one row and returns its primary key. Blank or missing
// values of columns with an ON_CREATE client-side default are filled first.
func (r *RecordRepository) Insert(ctx context.Context, table *schema.TableMetadata, values map[string]interface{}) (interface{}, error) {
	assignments, err := r.prepare(table, values, schema.OnCreate)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return nil, appErrors.ErrNoWritableColumns
	}

	d := r.dialect()
	pk := table.PrimaryKey()
	b := query.Insert(d, table.Name()).Returning(pk.Name)
	var suppliedID interface{}
	for _, a := range assignments {
		b.Set(a.column, a.value)
		if a.column == pk.Name {
			suppliedID = a.value
		}
	}
	stmt, err := b.Build()
	if err != nil {
		return nil, err
	}
	sqlText, args, err := stmt.Bind(d)
	if err != nil {
		return nil, err
	}

	exec := r.tm.Executor(ctx)
	if b.HasReturning() {
		var raw interface{}
		if err := exec.QueryRowContext(ctx, sqlText, args...).Scan(&raw); err != nil {
			return nil, appErrors.NewDatabaseError("insert into "+table.Name(), err)
		}
		if bs, ok := raw.([]byte); ok {
			raw = string(bs)
		}
		return pk.Domain.Convert(raw)
	}

	res, err := exec.ExecContext(ctx, sqlText, args...)
	if err != nil {
		return nil, appErrors.NewDatabaseError("insert into "+table.Name(), err)
	}
	if !pk.Domain.AutoIncrement() {
		return suppliedID, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, appErrors.NewDatabaseError("insert into "+table.Name(), err)
	}
	return id, nil
}

// Update changes the row with the given primary key and returns the number
// of affected rows
func (r *RecordRepository) Update(ctx context.Context, table *schema.TableMetadata, id interface{}, values map[string]interface{}) (int64, error) {
	return r.UpdateBy(ctx, table, query.Eq(table.PrimaryKey().Name, id), values)
}

// UpdateBy changes every row matching the criterion. The primary key is never
// part of the SET list and a masked password means "keep the current one".
// With nothing left to write it affects no rows and returns no error.
func (r *RecordRepository) UpdateBy(ctx context.Context, table *schema.TableMetadata, criterion query.Criterion, values map[string]interface{}) (int64, error) {
	assignments, err := r.prepare(table, values, schema.OnUpdate)
	if err != nil {
		return 0, err
	}
	pk := table.PrimaryKey().Name
	d := r.dialect()
	b := query.Update(d, table.Name())
	n := 0
	for _, a := range assignments {
		if a.column == pk {
			continue
		}
		b.Set(a.column, a.value)
		n++
	}
	if n == 0 {
		return 0, nil
	}

	where, err := table.BuildWhereFor(d, criterion)
	if err != nil {
		return 0, err
	}
	stmt, err := b.Where(where).Build()
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, "update "+table.Name(), stmt)
}

// Delete removes the row with the given primary key
func (r *RecordRepository) Delete(ctx context.Context, table *schema.TableMetadata, id interface{}) (int64, error) {
	return r.DeleteBy(ctx, table, query.Eq(table.PrimaryKey().Name, id))
}

// DeleteBy removes every row matching the criterion
func (r *RecordRepository) DeleteBy(ctx context.Context, table *schema.TableMetadata, criterion query.Criterion) (int64, error) {
	d := r.dialect()
	where, err := table.BuildWhereFor(d, criterion)
	if err != nil {
		return 0, err
	}
	stmt, err := query.Delete(d, table.Name()).Where(where).Build()
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, "delete from "+table.Name(), stmt)
}

// Save inserts when id is blank and updates the row otherwise. It returns
// the row's primary key and the number of affected rows. This is not an
// atomic upsert.
func (r *RecordRepository) Save(ctx context.Context, table *schema.TableMetadata, id interface{}, values map[string]interface{}) (interface{}, int64, error) {
	if utils.IsBlank(id) {
		newID, err := r.Insert(ctx, table, values)
		if err != nil {
			return nil, 0, err
		}
		return newID, 1, nil
	}
	n, err := r.Update(ctx, table, id, values)
	if err != nil {
		return nil, 0, err
	}
	return id, n, nil
}

func (r *RecordRepository) exec(ctx context.Context, op string, stmt query.Statement) (int64, error) {
	sqlText, args, err := stmt.Bind(r.dialect())
	if err != nil {
		return 0, err
	}
	res, err := r.tm.Executor(ctx).ExecContext(ctx, sqlText, args...)
	if err != nil {
		return 0, appErrors.NewDatabaseError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, appErrors.NewDatabaseError(op, err)
	}
	return n, nil
}

type columnValue struct {
	column string
	value  interface{}
}

// prepare turns incoming values into coerced column assignments in column
// order. Only columns present in values, or filled by a default firing on
// trigger, are written; explicit nils are kept so fields can be cleared.
func (r *RecordRepository) prepare(table *schema.TableMetadata, values map[string]interface{}, trigger schema.TriggerEvent) ([]columnValue, error) {
	for name := range values {
		if !table.HasColumn(name) {
			return nil, appErrors.NewUnknownColumnError(table.Name(), name)
		}
	}

	out := make([]columnValue, 0, len(values))
	for _, col := range table.Columns() {
		if col.Domain.AutoIncrement() || col.Domain.Virtual() {
			continue
		}
		raw, present := values[col.Name]
		if utils.IsBlank(raw) && col.DefaultValue.IsClientSide(trigger) {
			def, err := r.resolveDefault(col.DefaultValue)
			if err != nil {
				return nil, err
			}
			raw, present = def, true
		}
		if !present {
			continue
		}
		if s, ok := raw.(string); ok && trigger == schema.OnUpdate && col.Domain == fieldtypes.Password && s == auth.PasswordMask {
			continue
		}

		v, err := coerce(col.Domain, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, columnValue{column: col.Name, value: v})
	}
	return out, nil
}

func (r *RecordRepository) resolveDefault(def *schema.DefaultHolder) (interface{}, error) {
	switch def.ValueType {
	case schema.ValueConstant:
		return def.Value, nil
	case schema.ValueFormula:
		if strings.EqualFold(strings.TrimSpace(def.Value), schema.CurrentTimestamp) {
			return r.now(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s %q", appErrors.ErrUnknownDefaultExpression, def.ValueType, def.Value)
}

// coerce converts a value for writing. A blank string clears the column,
// except for TEXT where it is stored as an empty string.
func coerce(domain fieldtypes.Domain, raw interface{}) (interface{}, error) {
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		if domain == fieldtypes.Text {
			return "", nil
		}
		return nil, nil
	}
	return domain.Convert(raw)
}
