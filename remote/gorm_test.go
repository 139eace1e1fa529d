package remote_test

import (
	"context"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/qist_backend/config"
	"bitbucket.org/mmdatafocus/qist_backend/models"
	"bitbucket.org/mmdatafocus/qist_backend/remote"
	"bitbucket.org/mmdatafocus/qist_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGormRemote(t *testing.T) *remote.GormClient {
	t.Helper()
	db, err := config.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	client := remote.NewGormClient(db)
	require.NoError(t, client.AutoMigrate())
	return client
}

func TestGormPing(t *testing.T) {
	client := newGormRemote(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestGormCustomerRoundTrip(t *testing.T) {
	client := newGormRemote(t)
	ctx := context.Background()

	customer := &models.Customer{
		ID:          uuid.NewString(),
		ProfileId:   "p1",
		Name:        "Sara",
		TotalAmount: decimal.NewFromInt(900),
		IsActive:    utils.NewTrue(),
		CreatedAt:   time.Now(),
	}
	require.NoError(t, client.InsertCustomer(ctx, customer))

	got, err := client.SelectCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sara", got.Name)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(900)))

	customers, err := client.SelectCustomers(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, customers, 1)

	require.NoError(t, client.DeleteCustomer(ctx, customer.ID))
	_, err = client.SelectCustomer(ctx, customer.ID)
	assert.ErrorIs(t, err, utils.ErrorRecordNotFound)
}

func TestGormInsertIsUpsert(t *testing.T) {
	client := newGormRemote(t)
	ctx := context.Background()

	customer := &models.Customer{
		ID:          uuid.NewString(),
		ProfileId:   "p1",
		Name:        "Before",
		TotalAmount: decimal.NewFromInt(100),
		IsActive:    utils.NewTrue(),
		CreatedAt:   time.Now(),
	}
	require.NoError(t, client.InsertCustomer(ctx, customer))

	// A replayed create for an already-present record overwrites it.
	customer.Name = "After"
	require.NoError(t, client.InsertCustomer(ctx, customer))

	got, err := client.SelectCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Name)

	customers, err := client.SelectCustomers(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, customers, 1)
}

func TestGormInstallmentsByCustomers(t *testing.T) {
	client := newGormRemote(t)
	ctx := context.Background()

	for _, customerId := range []string{"c1", "c2", "c3"} {
		require.NoError(t, client.InsertInstallment(ctx, &models.Installment{
			ID:         uuid.NewString(),
			CustomerId: customerId,
			Amount:     decimal.NewFromInt(10),
			Date:       "2026-08-01",
		}))
	}

	installments, err := client.SelectInstallmentsByCustomers(ctx, []string{"c1", "c3"})
	require.NoError(t, err)
	assert.Len(t, installments, 2)

	none, err := client.SelectInstallmentsByCustomers(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}
