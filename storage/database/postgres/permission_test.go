package postgres

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/permission"
)

type stubResult struct{}

func (stubResult) LastInsertId() (int64, error) { return 0, nil }
func (stubResult) RowsAffected() (int64, error) { return 1, nil }

// failingTx accepts the DELETE, fails the second INSERT and records whether
// the transaction ended in a commit or a rollback.
type failingTx struct {
	deletes, inserts int
	committed        bool
	rolledBack       bool
}

func (tx *failingTx) ExecContext(_ context.Context, query string, _ ...interface{}) (sql.Result, error) {
	if strings.HasPrefix(strings.TrimSpace(query), "DELETE") {
		tx.deletes++
		return stubResult{}, nil
	}
	tx.inserts++
	if tx.inserts == 2 {
		return nil, errors.New("connection reset")
	}
	return stubResult{}, nil
}

func (tx *failingTx) GetContext(context.Context, interface{}, string, ...interface{}) error {
	return sql.ErrNoRows
}

func (tx *failingTx) SelectContext(context.Context, interface{}, string, ...interface{}) error {
	return nil
}

func (tx *failingTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }

func (tx *failingTx) Commit() error {
	tx.committed = true
	return nil
}

func (tx *failingTx) Rollback() error {
	tx.rolledBack = true
	return nil
}

type stubDB struct {
	tx *failingTx
}

func (db *stubDB) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return stubResult{}, nil
}

func (db *stubDB) GetContext(context.Context, interface{}, string, ...interface{}) error {
	return sql.ErrNoRows
}

func (db *stubDB) SelectContext(context.Context, interface{}, string, ...interface{}) error {
	return nil
}

func (db *stubDB) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }

func (db *stubDB) BeginTx(context.Context, *sql.TxOptions) (core.DBTransactor, error) {
	return db.tx, nil
}

// A failure halfway through the bulk insert must roll the transaction back so
// the role keeps its previous rows.
func TestPermissionRepository_ReplaceRolePermissions_rollsBack(t *testing.T) {
	tx := &failingTx{}
	repo := NewPermissionRepository(&stubDB{tx: tx})

	err := repo.ReplaceRolePermissions(context.Background(), 1, []permission.Permission{
		{RoleID: 1, MenuID: 1, CanView: true},
		{RoleID: 1, MenuID: 2, CanView: true},
	})
	if err == nil {
		t.Fatal("ReplaceRolePermissions() error = nil, want insert failure")
	}
	if tx.deletes != 1 || tx.inserts != 2 {
		t.Errorf("deletes = %d, inserts = %d, want 1 and 2", tx.deletes, tx.inserts)
	}
	if tx.committed {
		t.Error("transaction committed after a failed insert")
	}
	if !tx.rolledBack {
		t.Error("transaction not rolled back")
	}
}
