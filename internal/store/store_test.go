package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T, dialect Dialect) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(logger.NewTestLogger(), db, dialect), mock
}

func TestSaveObject(t *testing.T) {
	store, mock := newMockStore(t, SQLite)
	syncedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(SQLite.upsert("sobjects", objectColumns, []string{"org_id", "durable_id"})).
		WithArgs("00D1", "Account.01I1", "Account", "Account", "Accounts", false, "001", true, true, true, true, "{}", "2026-08-01T12:00:00Z").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.SaveObject(context.Background(), store.db, Object{
		OrgID:       "00D1",
		DurableID:   "Account.01I1",
		APIName:     "Account",
		Label:       "Account",
		LabelPlural: "Accounts",
		KeyPrefix:   "001",
		Queryable:   true,
		Createable:  true,
		Updateable:  true,
		Deletable:   true,
		Raw:         "{}",
		SyncedAt:    syncedAt,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxCommit(t *testing.T) {
	store, mock := newMockStore(t, SQLite)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM triggers").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(), "DELETE FROM triggers")
		return err
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollback(t *testing.T) {
	store, mock := newMockStore(t, SQLite)
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx *sql.Tx) error {
		return fmt.Errorf("stage failed")
	})
	assert.EqualError(t, err, "stage failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	store, mock := newMockStore(t, SQLite)
	for _, ddl := range schema {
		mock.ExpectExec(ddl).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	assert.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetActiveOrgUnknownAlias(t *testing.T) {
	store, mock := newMockStore(t, SQLite)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orgs SET active = ?").WithArgs(false).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE orgs SET active = ? WHERE alias = ?").WithArgs(true, "missing").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.SetActiveOrg(context.Background(), "missing")
	assert.EqualError(t, err, "no org with alias: missing")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDependencies(t *testing.T) {
	store, mock := newMockStore(t, SQLite)
	rows := sqlmock.NewRows([]string{"alias", "object_name", "field_name", "dependent_type", "dependent_name", "reference_type"}).
		AddRow("prod", "Account", "Email", "flow", "Update_Account", "write").
		AddRow("prod", "Account", "Email", "trigger", "AccountTrigger", "reference")
	mock.ExpectQuery("SELECT alias, object_name, field_name, dependent_type, dependent_name, reference_type FROM field_dependencies WHERE alias = ? AND object_name = ? AND field_name = ? ORDER BY dependent_type, dependent_name").
		WithArgs("prod", "Account", "Email").
		WillReturnRows(rows)

	deps, err := store.Dependencies(context.Background(), "prod", "Account", "Email")
	assert.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, "write", deps[0].ReferenceType)
	assert.Equal(t, "trigger", deps[1].DependentType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchObjectsEscalation(t *testing.T) {
	store, mock := newMockStore(t, SQLite)
	query := "SELECT api_name, label, custom FROM sobjects WHERE org_id = ? AND (LOWER(api_name) LIKE LOWER(?) ESCAPE '!' OR LOWER(label) LIKE LOWER(?) ESCAPE '!') ORDER BY api_name LIMIT 25"
	empty := func() *sqlmock.Rows { return sqlmock.NewRows([]string{"api_name", "label", "custom"}) }
	mock.ExpectQuery(query).WithArgs("00D1", "acc", "acc").WillReturnRows(empty())
	mock.ExpectQuery(query).WithArgs("00D1", "acc%", "acc%").
		WillReturnRows(empty().AddRow("Account", "Account", false))

	results, err := store.SearchObjects(context.Background(), "00D1", "acc", 0)
	assert.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Account", results[0].ObjectName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	store, mock := newMockStore(t, SQLite)
	mock.ExpectQuery("SELECT COUNT(*), COALESCE(SUM(CASE WHEN custom THEN 1 ELSE 0 END), 0) FROM sobjects WHERE org_id = ?").
		WithArgs("00D1").WillReturnRows(sqlmock.NewRows([]string{"count", "custom"}).AddRow(120, 14))
	mock.ExpectQuery("SELECT COUNT(*), COALESCE(SUM(CASE WHEN custom THEN 1 ELSE 0 END), 0) FROM fields WHERE org_id = ?").
		WithArgs("00D1").WillReturnRows(sqlmock.NewRows([]string{"count", "custom"}).AddRow(2400, 310))
	mock.ExpectQuery("SELECT COUNT(*) FROM flows WHERE org_id = ?").
		WithArgs("00D1").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(18))
	mock.ExpectQuery("SELECT COUNT(*) FROM triggers WHERE org_id = ?").
		WithArgs("00D1").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))
	mock.ExpectQuery("SELECT COUNT(*) FROM field_relationships WHERE alias = ?").
		WithArgs("prod").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(93))
	mock.ExpectQuery("SELECT MAX(completed_at) FROM sync_runs WHERE alias = ?").
		WithArgs("prod").WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow("2026-08-01T12:30:00Z"))

	stats, err := store.Stats(context.Background(), "00D1", "prod")
	assert.NoError(t, err)
	assert.Equal(t, 120, stats.Objects)
	assert.Equal(t, 14, stats.CustomObjects)
	assert.Equal(t, 2400, stats.Fields)
	assert.Equal(t, 310, stats.CustomFields)
	assert.Equal(t, 18, stats.Flows)
	assert.Equal(t, 6, stats.Triggers)
	assert.Equal(t, 93, stats.Relationships)
	assert.Equal(t, time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC), stats.LastSync)
	assert.NoError(t, mock.ExpectationsWereMet())
}
