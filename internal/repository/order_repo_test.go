package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"dealhub/internal/model"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return gormDB, mock
}

func TestOrderRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order := &model.VoucherOrder{
		ID:        123456789,
		UserID:    7,
		VoucherID: 42,
		Status:    model.OrderStatusUnpaid,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `voucher_orders`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Create(ctx, nil, order)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "user_id", "voucher_id", "status"}).
			AddRow(1, 7, 42, model.OrderStatusUnpaid)

		mock.ExpectQuery("SELECT \\* FROM `voucher_orders` WHERE id = \\?").
			WithArgs(uint64(1), 1).
			WillReturnRows(rows)

		order, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), order.UserID)
		assert.Equal(t, uint64(42), order.VoucherID)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT \\* FROM `voucher_orders` WHERE id = \\?").
			WithArgs(uint64(9), 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetByID(ctx, 9)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestOrderRepository_ExistsByUserAndVoucher(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	t.Run("Exists", func(t *testing.T) {
		mock.ExpectQuery("SELECT count\\(\\*\\) FROM `voucher_orders` WHERE user_id = \\? AND voucher_id = \\?").
			WithArgs(uint64(7), uint64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		exists, err := repo.ExistsByUserAndVoucher(ctx, nil, 7, 42)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Missing", func(t *testing.T) {
		mock.ExpectQuery("SELECT count\\(\\*\\) FROM `voucher_orders` WHERE user_id = \\? AND voucher_id = \\?").
			WithArgs(uint64(7), uint64(43)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		exists, err := repo.ExistsByUserAndVoucher(ctx, nil, 7, 43)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestShopRepository_ListIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewShopRepository(db)

	mock.ExpectQuery("SELECT `id` FROM `shops`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(7))

	ids, err := repo.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 7}, ids)
}

func TestVoucherRepository_ListIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewVoucherRepository(db)

	mock.ExpectQuery("SELECT `id` FROM `vouchers`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	ids, err := repo.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint64{42}, ids)
}

func TestVoucherRepository_DecrementStockIfPositive(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewVoucherRepository(db)
	ctx := context.Background()

	t.Run("DecrementsWhilePositive", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE `vouchers` SET `stock`=stock - \\? WHERE id = \\? AND stock > 0").
			WithArgs(1, uint64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		affected, err := repo.DecrementStockIfPositive(ctx, nil, 42)
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)
	})

	t.Run("GuardRejectsAtZero", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE `vouchers` SET `stock`=stock - \\? WHERE id = \\? AND stock > 0").
			WithArgs(1, uint64(42)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		affected, err := repo.DecrementStockIfPositive(ctx, nil, 42)
		require.NoError(t, err)
		assert.Equal(t, int64(0), affected)
	})
}
