package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"oriyet/internal/domain"
)

func TestTransactor_WithinTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commits and routes repository calls through the tx", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE events SET registration_status_id`).
			WithArgs(int64(3), "ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewEventRepository(db)
		err = NewTransactor(db).WithinTransaction(ctx, func(ctx context.Context) error {
			return repo.SetRegistrationStatus(ctx, "ev-1", 3)
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on business error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		err = NewTransactor(db).WithinTransaction(ctx, func(ctx context.Context) error {
			return domain.ErrCapacityReached
		})
		require.ErrorIs(t, err, domain.ErrCapacityReached)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested call joins outer tx", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		tr := NewTransactor(db)
		calls := 0
		err = tr.WithinTransaction(ctx, func(ctx context.Context) error {
			return tr.WithinTransaction(ctx, func(ctx context.Context) error {
				calls++
				return nil
			})
		})
		require.NoError(t, err)
		require.Equal(t, 1, calls)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure is transient", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin().WillReturnError(sql.ErrConnDone)

		err = NewTransactor(db).WithinTransaction(ctx, func(ctx context.Context) error { return nil })
		require.ErrorIs(t, err, domain.ErrTransient)
		require.True(t, errors.Is(err, sql.ErrConnDone))
	})
}
