package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/qist_backend/config"
	"bitbucket.org/mmdatafocus/qist_backend/localstore"
	"bitbucket.org/mmdatafocus/qist_backend/models"
	"bitbucket.org/mmdatafocus/qist_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var exportNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func newExportFixture(t *testing.T) (*localstore.Store, *Service) {
	t.Helper()
	db, err := config.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	store := localstore.New(db)
	require.NoError(t, store.AutoMigrate())
	return store, &Service{store: store, now: func() time.Time { return exportNow }}
}

func seedExportData(t *testing.T, store *localstore.Store) (customer *models.Customer, project *models.Project) {
	t.Helper()
	ctx := context.Background()

	customer = &models.Customer{
		ID:          uuid.NewString(),
		ProfileId:   "p1",
		Name:        "Ahmed Khan",
		Phone:       "+923001234567",
		TotalAmount: decimal.NewFromInt(1000),
		IsActive:    utils.NewTrue(),
		CreatedAt:   exportNow,
	}
	require.NoError(t, store.PutSynced(ctx, customer))

	project = &models.Project{
		ID:          uuid.NewString(),
		CustomerId:  customer.ID,
		ProfileId:   "p1",
		Name:        "Shop Renovation",
		TotalAmount: decimal.NewFromInt(600),
		StartDate:   "2026-05-01",
		IsActive:    utils.NewTrue(),
	}
	require.NoError(t, store.PutSynced(ctx, project))

	scoped := &models.Installment{
		ID: uuid.NewString(), CustomerId: customer.ID, ProjectId: &project.ID,
		Amount: decimal.NewFromInt(200), Date: "2026-06-15", CreatedAt: exportNow,
	}
	loose := &models.Installment{
		ID: uuid.NewString(), CustomerId: customer.ID,
		Amount: decimal.NewFromInt(100), Date: "2026-07-10", CreatedAt: exportNow,
	}
	require.NoError(t, store.PutSynced(ctx, scoped))
	require.NoError(t, store.PutSynced(ctx, loose))
	return customer, project
}

func TestFormatDefaults(t *testing.T) {
	assert.True(t, FormatCSV.IsValid())
	assert.False(t, Format("pdf").IsValid())
	assert.Equal(t, "text/csv", FormatCSV.ContentType())
	assert.Equal(t, "application/json", FormatJSON.ContentType())
}

func TestCustomersCSV(t *testing.T) {
	store, svc := newExportFixture(t)
	seedExportData(t, store)

	result, err := svc.Customers(context.Background(), "p1", FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "customers_export_2026-08-31.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)

	records, err := csv.NewReader(bytes.NewReader(result.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Name", "Phone", "Total Amount", "Paid Amount", "Remaining Amount", "Created Date"}, records[0])
	assert.Equal(t, "Ahmed Khan", records[1][0])
	assert.Equal(t, "1000", records[1][2])
	assert.Equal(t, "300", records[1][3])
	assert.Equal(t, "700", records[1][4])
}

func TestCustomersJSONCarriesBalances(t *testing.T) {
	store, svc := newExportFixture(t)
	seedExportData(t, store)

	result, err := svc.Customers(context.Background(), "p1", FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "customers_export_2026-08-31.json", result.Filename)

	var customers []models.Customer
	require.NoError(t, json.Unmarshal(result.Data, &customers))
	require.Len(t, customers, 1)
	assert.True(t, customers[0].PaidAmount.Equal(decimal.NewFromInt(300)))
}

func TestCustomersXLSX(t *testing.T) {
	store, svc := newExportFixture(t)
	seedExportData(t, store)

	result, err := svc.Customers(context.Background(), "p1", FormatXLSX)
	require.NoError(t, err)
	require.NotEmpty(t, result.Data)

	f, err := excelize.OpenReader(bytes.NewReader(result.Data))
	require.NoError(t, err)
	defer f.Close()

	name, err := f.GetCellValue("Sheet1", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Ahmed Khan", name)
}

func TestPaymentsNewestFirstWithProjectJoin(t *testing.T) {
	store, svc := newExportFixture(t)
	seedExportData(t, store)

	result, err := svc.Payments(context.Background(), "p1", "", "", FormatCSV)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(result.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "2026-07-10", records[1][0])
	assert.Equal(t, "N/A", records[1][3])
	assert.Equal(t, "2026-06-15", records[2][0])
	assert.Equal(t, "Shop Renovation", records[2][3])
}

func TestPaymentsDateRangeIsInclusive(t *testing.T) {
	store, svc := newExportFixture(t)
	seedExportData(t, store)

	result, err := svc.Payments(context.Background(), "p1", "2026-06-15", "2026-06-30", FormatCSV)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(result.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2026-06-15", records[1][0])
}

func TestPaymentsUnknownFormatFallsBackToCSV(t *testing.T) {
	store, svc := newExportFixture(t)
	seedExportData(t, store)

	result, err := svc.Payments(context.Background(), "p1", "", "", Format("pdf"))
	require.NoError(t, err)
	assert.Equal(t, "payments_export_2026-08-31.csv", result.Filename)
}
