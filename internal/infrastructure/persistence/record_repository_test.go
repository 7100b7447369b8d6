package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkppp/p2proto/internal/domain/schema"
	"github.com/kkkppp/p2proto/internal/infrastructure/database"
	"github.com/kkkppp/p2proto/pkg/auth"
	appErrors "github.com/kkkppp/p2proto/pkg/errors"
	"github.com/kkkppp/p2proto/pkg/fieldtypes"
	"github.com/kkkppp/p2proto/pkg/query"
)

var fixedNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

const personSelect = "SELECT id, name, created_at, updated_at, secret, (upper(name)) AS shout FROM person"

func personTable(t *testing.T) *schema.TableMetadata {
	t.Helper()
	table, err := schema.NewTable(schema.TableSpec{
		Name: "person",
		Columns: []schema.ColumnMetadata{
			{Name: "id", Domain: fieldtypes.AutoIncrement},
			{Name: "name", Domain: fieldtypes.Text},
			{Name: "created_at", Domain: fieldtypes.DateTime,
				DefaultValue: schema.ClientDefault(schema.ValueFormula, schema.OnCreate, schema.CurrentTimestamp)},
			{Name: "updated_at", Domain: fieldtypes.DateTime,
				DefaultValue: schema.ClientDefault(schema.ValueFormula, schema.OnUpdate, schema.CurrentTimestamp)},
			{Name: "secret", Domain: fieldtypes.Password},
			schema.ColumnMetadata{Name: "shout", Domain: fieldtypes.Formula}.WithFormula("upper($name)"),
		},
	})
	require.NoError(t, err)
	return table
}

func accountTable(t *testing.T) *schema.TableMetadata {
	t.Helper()
	table, err := schema.NewTable(schema.TableSpec{
		Name: "account",
		Columns: []schema.ColumnMetadata{
			{Name: "id", Domain: fieldtypes.AutoIncrement},
			{Name: "secret", Domain: fieldtypes.Password},
			schema.ColumnMetadata{Name: "tag", Domain: fieldtypes.Formula}.WithFormula("concat('#', $id)"),
		},
	})
	require.NoError(t, err)
	return table
}

func newMockRepository(t *testing.T, dialect query.Dialect) (*RecordRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	repo := NewRecordRepository(NewTransactionManager(database.NewConnection(db, dialect)))
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

// bcryptOf matches a bound bcrypt hash of the expected plain text
type bcryptOf string

func (b bcryptOf) Match(v driver.Value) bool {
	hash, ok := v.(string)
	return ok && auth.VerifyPassword(string(b), hash)
}

func TestRecordRepository_FindAll(t *testing.T) {
	repo, mock := newMockRepository(t, query.Postgres)

	mock.ExpectQuery(regexp.QuoteMeta(personSelect + " ORDER BY id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "shout"}).
			AddRow(int64(1), "Ann", "ANN").
			AddRow(int64(2), []byte("Bob"), "BOB"))

	rows, err := repo.FindAll(context.Background(), personTable(t))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ann", rows[0]["name"])
	assert.Equal(t, "Bob", rows[1]["name"], "raw bytes are returned as strings")
}

func TestRecordRepository_FindBy(t *testing.T) {
	repo, mock := newMockRepository(t, query.Postgres)

	mock.ExpectQuery(regexp.QuoteMeta(personSelect + " WHERE (name = $1 OR secret IS NULL) ORDER BY id ASC")).
		WithArgs("Ann").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ann"))

	rows, err := repo.FindBy(context.Background(), personTable(t), query.AnyOf(query.Eq("name", "Ann"), query.IsNull("secret")))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRecordRepository_FindBy_UnknownColumn(t *testing.T) {
	repo, _ := newMockRepository(t, query.Postgres)

	_, err := repo.FindBy(context.Background(), personTable(t), query.Eq("nickname", "x"))
	require.Error(t, err)
	assert.True(t, appErrors.IsUnknownColumn(err))
}

func TestRecordRepository_FindByID(t *testing.T) {
	repo, mock := newMockRepository(t, query.Postgres)
	table := personTable(t)
	sqlText := regexp.QuoteMeta(personSelect + " WHERE id = $1 ORDER BY id ASC LIMIT 1")

	mock.ExpectQuery(sqlText).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(5), "Ann"))
	mock.ExpectQuery(sqlText).WithArgs(int64(6)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	row, err := repo.FindByID(context.Background(), table, "5")
	require.NoError(t, err)
	assert.Equal(t, "Ann", row["name"])

	row, err = repo.FindByID(context.Background(), table, 6)
	assert.NoError(t, err, "an absent row is not an error")
	assert.Nil(t, row)
}

func TestRecordRepository_Insert(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]interface{}
		wantArgs []driver.Value
	}{
		{
			name:     "missing default is filled",
			values:   map[string]interface{}{"name": "Ann"},
			wantArgs: []driver.Value{"Ann", fixedNow},
		},
		{
			name:     "blank default is filled",
			values:   map[string]interface{}{"name": "Ann", "created_at": "  "},
			wantArgs: []driver.Value{"Ann", fixedNow},
		},
		{
			name:     "client value wins",
			values:   map[string]interface{}{"name": "Ann", "created_at": "2099-01-01T00:00:00Z"},
			wantArgs: []driver.Value{"Ann", time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		{
			name:     "auto increment and formula columns are never written",
			values:   map[string]interface{}{"id": 99, "name": "Ann", "shout": "ignored"},
			wantArgs: []driver.Value{"Ann", fixedNow},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t, query.Postgres)
			mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO person (name, created_at) VALUES ($1, $2) RETURNING id")).
				WithArgs(tt.wantArgs...).
				WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

			id, err := repo.Insert(context.Background(), personTable(t), tt.values)
			require.NoError(t, err)
			assert.Equal(t, int64(7), id)
		})
	}
}

func TestRecordRepository_Insert_PasswordIsHashedAndMaskIsKept(t *testing.T) {
	repo, mock := newMockRepository(t, query.Postgres)

	// on insert there is no previous value, so the mask is an ordinary password
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO account (secret) VALUES ($1) RETURNING id")).
		WithArgs(bcryptOf(auth.PasswordMask)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	_, err := repo.Insert(context.Background(), accountTable(t), map[string]interface{}{"secret": auth.PasswordMask})
	require.NoError(t, err)
}

func TestRecordRepository_Insert_MalformedReturnedKey(t *testing.T) {
	repo, mock := newMockRepository(t, query.Postgres)
	table, err := schema.NewTable(schema.TableSpec{
		Name: "device",
		Columns: []schema.ColumnMetadata{
			{Name: "id", Domain: fieldtypes.UUID},
			{Name: "name", Domain: fieldtypes.Text},
		},
	})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO device (name) VALUES ($1) RETURNING id")).
		WithArgs("sensor").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("not-a-uuid"))

	id, err := repo.Insert(context.Background(), table, map[string]interface{}{"name": "sensor"})
	require.Error(t, err)
	assert.Nil(t, id)
	assert.True(t, appErrors.IsMalformedValue(err), "unexpected error: %v", err)
}

func TestRecordRepository_Insert_MySQLUsesLastInsertID(t *testing.T) {
	repo, mock := newMockRepository(t, query.MySQL)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO person (name, created_at) VALUES (?, ?)")).
		WithArgs("Ann", fixedNow).
		WillReturnResult(sqlmock.NewResult(42, 1))

	id, err := repo.Insert(context.Background(), personTable(t), map[string]interface{}{"name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestRecordRepository_Insert_Errors(t *testing.T) {
	badDefault, err := schema.NewTable(schema.TableSpec{
		Name: "stamp",
		Columns: []schema.ColumnMetadata{
			{Name: "id", Domain: fieldtypes.AutoIncrement},
			{Name: "at", Domain: fieldtypes.DateTime,
				DefaultValue: schema.ClientDefault(schema.ValueFormula, schema.OnCreate, "NOW()")},
		},
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		table  *schema.TableMetadata
		values map[string]interface{}
		check  func(t *testing.T, err error)
	}{
		{
			name:   "nothing writable",
			table:  accountTable(t),
			values: map[string]interface{}{"id": 1, "tag": "x"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, appErrors.ErrNoWritableColumns)
			},
		},
		{
			name:   "unknown column",
			table:  personTable(t),
			values: map[string]interface{}{"nickname": "x"},
			check: func(t *testing.T, err error) {
				assert.True(t, appErrors.IsUnknownColumn(err))
			},
		},
		{
			name:   "unknown default expression",
			table:  badDefault,
			values: map[string]interface{}{},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, appErrors.ErrUnknownDefaultExpression)
			},
		},
		{
			name:   "malformed value",
			table:  personTable(t),
			values: map[string]interface{}{"created_at": "yesterday"},
			check: func(t *testing.T, err error) {
				assert.True(t, appErrors.IsMalformedValue(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _ := newMockRepository(t, query.Postgres)
			_, err := repo.Insert(context.Background(), tt.table, tt.values)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestRecordRepository_Update(t *testing.T) {
	repo, mock := newMockRepository(t, query.Postgres)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE person SET name = $1, updated_at = $2 WHERE id = $3")).
		WithArgs("Ann", fixedNow, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.Update(context.Background(), personTable(t), 5, map[string]interface{}{
		"id":     9,
		"name":   "Ann",
		"secret": auth.PasswordMask,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRecordRepository_Update_NewPassword(t *testing.T) {
	repo, mock := newMockRepository(t, query.Postgres)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE account SET secret = $1 WHERE id = $2")).
		WithArgs(bcryptOf("s3cret"), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := repo.Update(context.Background(), accountTable(t), 1, map[string]interface{}{"secret": "s3cret"})
	require.NoError(t, err)
}

func TestRecordRepository_Update_NothingToWrite(t *testing.T) {
	repo, _ := newMockRepository(t, query.Postgres)

	n, err := repo.UpdateBy(context.Background(), accountTable(t), query.Gt("id", 0), map[string]interface{}{
		"id":     1,
		"secret": auth.PasswordMask,
	})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecordRepository_DeleteBy(t *testing.T) {
	repo, mock := newMockRepository(t, query.Postgres)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM person WHERE name IN ($1, $2)")).
		WithArgs("Ann", "Bob").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DeleteBy(context.Background(), personTable(t), query.In("name", "Ann", "Bob"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRecordRepository_DatabaseError(t *testing.T) {
	repo, mock := newMockRepository(t, query.Postgres)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM person WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.Delete(context.Background(), personTable(t), 1)
	require.Error(t, err)
	assert.True(t, appErrors.IsDatabase(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestRecordRepository_Save(t *testing.T) {
	repo, mock := newMockRepository(t, query.Postgres)
	table := personTable(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO person (name, created_at) VALUES ($1, $2) RETURNING id")).
		WithArgs("Ann", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE person SET name = $1, updated_at = $2 WHERE id = $3")).
		WithArgs("Anna", fixedNow, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, n, err := repo.Save(context.Background(), table, "", map[string]interface{}{"name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.Equal(t, int64(1), n)

	id, n, err = repo.Save(context.Background(), table, id, map[string]interface{}{"name": "Anna"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.Equal(t, int64(1), n)
}
