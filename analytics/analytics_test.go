package analytics

import (
	"context"
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
)

var testNow = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*localstore.Store, *Service) {
	t.Helper()
	db, err := config.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	store := localstore.New(db)
	require.NoError(t, store.AutoMigrate())
	return store, &Service{store: store, now: func() time.Time { return testNow }}
}

func paidCustomer(total int64) models.Customer {
	return models.Customer{
		ID:          uuid.NewString(),
		ProfileId:   "p1",
		Name:        "Rated",
		TotalAmount: decimal.NewFromInt(total),
		IsActive:    utils.NewTrue(),
	}
}

func payment(customerId string, amount int64, date string) models.Installment {
	return models.Installment{
		ID:         uuid.NewString(),
		CustomerId: customerId,
		Amount:     decimal.NewFromInt(amount),
		Date:       date,
	}
}

func TestRateCustomerThresholds(t *testing.T) {
	_, svc := newTestService(t)

	cases := []struct {
		name        string
		paid        int64
		lastPayment string
		consistency Consistency
		risk        RiskLevel
	}{
		{"excellent and recent", 95, "2026-08-26", ConsistencyExcellent, RiskLow},
		{"good but stale", 75, "2026-08-11", ConsistencyGood, RiskMedium},
		{"fair completion", 60, "2026-08-26", ConsistencyFair, RiskMedium},
		{"poor completion", 30, "2026-08-26", ConsistencyPoor, RiskHigh},
		{"dormant over a month", 80, "2026-07-22", ConsistencyGood, RiskHigh},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			customer := paidCustomer(100)
			rated := svc.rateCustomer(customer, []models.Installment{
				payment(customer.ID, tc.paid, tc.lastPayment),
			}, 0)
			assert.Equal(t, tc.consistency, rated.PaymentConsistency)
			assert.Equal(t, tc.risk, rated.RiskLevel)
		})
	}
}

func TestRateCustomerNeverPaid(t *testing.T) {
	_, svc := newTestService(t)

	rated := svc.rateCustomer(paidCustomer(100), nil, 2)
	assert.Equal(t, noPaymentDays, rated.DaysSinceLastPayment)
	assert.Equal(t, ConsistencyPoor, rated.PaymentConsistency)
	assert.Equal(t, RiskHigh, rated.RiskLevel)
	assert.Equal(t, 2, rated.TotalProjects)
	assert.True(t, rated.AvgPaymentAmount.IsZero())
}

func TestRateCustomerAveragesPayments(t *testing.T) {
	_, svc := newTestService(t)

	customer := paidCustomer(300)
	rated := svc.rateCustomer(customer, []models.Installment{
		payment(customer.ID, 40, "2026-08-20"),
		payment(customer.ID, 60, "2026-08-25"),
	}, 1)
	assert.True(t, rated.AvgPaymentAmount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 6, rated.DaysSinceLastPayment)
}

func TestRiskAnalysisSummary(t *testing.T) {
	store, svc := newTestService(t)
	ctx := context.Background()

	low := paidCustomer(100)
	high := paidCustomer(100)
	require.NoError(t, store.PutSynced(ctx, &low))
	require.NoError(t, store.PutSynced(ctx, &high))
	lowPaid := payment(low.ID, 95, "2026-08-28")
	highPaid := payment(high.ID, 10, "2026-08-28")
	require.NoError(t, store.PutSynced(ctx, &lowPaid))
	require.NoError(t, store.PutSynced(ctx, &highPaid))

	report, err := svc.RiskAnalysis(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.TotalCustomers)
	assert.Equal(t, 1, report.Summary.LowRisk)
	assert.Equal(t, 1, report.Summary.HighRisk)
	require.Len(t, report.TopRisky, 1)
	assert.Equal(t, high.ID, report.TopRisky[0].CustomerId)

	// Sorted by paid amount descending.
	require.Len(t, report.Customers, 2)
	assert.Equal(t, low.ID, report.Customers[0].CustomerId)
}

func TestEnhancedDashboardRoi(t *testing.T) {
	store, svc := newTestService(t)
	ctx := context.Background()

	customer := paidCustomer(100)
	require.NoError(t, store.PutSynced(ctx, &customer))
	paid := payment(customer.ID, 75, "2026-08-01")
	require.NoError(t, store.PutSynced(ctx, &paid))
	require.NoError(t, store.PutSynced(ctx, &models.Investment{
		ID:             uuid.NewString(),
		ProfileId:      "p1",
		Amount:         decimal.NewFromInt(50),
		InvestmentType: models.InvestmentTypeCapital,
		Date:           "2026-01-01",
	}))

	stats, err := svc.EnhancedDashboard(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, stats.TotalCollected.Equal(decimal.NewFromInt(75)))
	assert.True(t, stats.TotalInvestment.Equal(decimal.NewFromInt(50)))
	assert.True(t, stats.NetProfit.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, 50, stats.Roi)
}

func TestEnhancedDashboardWithoutInvestment(t *testing.T) {
	store, svc := newTestService(t)

	stats, err := svc.EnhancedDashboard(context.Background(), "p1")
	require.NoError(t, err)
	assert.Zero(t, stats.Roi)
	_ = store
}

func TestOverduePayments(t *testing.T) {
	store, svc := newTestService(t)
	ctx := context.Background()

	customer := paidCustomer(500)
	require.NoError(t, store.PutSynced(ctx, &customer))

	overdueProject := models.Project{
		ID:                uuid.NewString(),
		CustomerId:        customer.ID,
		ProfileId:         "p1",
		Name:              "Overdue",
		TotalAmount:       decimal.NewFromInt(100),
		InstallmentAmount: decimal.NewFromInt(30),
		StartDate:         "2026-01-01",
		IsActive:          utils.NewTrue(),
	}
	currentProject := models.Project{
		ID:                uuid.NewString(),
		CustomerId:        customer.ID,
		ProfileId:         "p1",
		Name:              "Current",
		TotalAmount:       decimal.NewFromInt(100),
		InstallmentAmount: decimal.NewFromInt(30),
		StartDate:         "2026-01-01",
		IsActive:          utils.NewTrue(),
	}
	require.NoError(t, store.PutSynced(ctx, &overdueProject))
	require.NoError(t, store.PutSynced(ctx, &currentProject))

	stale := payment(customer.ID, 20, "2026-07-22")
	stale.ProjectId = &overdueProject.ID
	fresh := payment(customer.ID, 20, "2026-08-28")
	fresh.ProjectId = &currentProject.ID
	require.NoError(t, store.PutSynced(ctx, &stale))
	require.NoError(t, store.PutSynced(ctx, &fresh))

	overdue, err := svc.OverduePayments(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, overdueProject.ID, overdue[0].ProjectId)
	assert.Equal(t, 40, overdue[0].DaysOverdue)
	assert.True(t, overdue[0].OverdueAmount.Equal(decimal.NewFromInt(30)))
	assert.True(t, overdue[0].TotalRemaining.Equal(decimal.NewFromInt(80)))
}

func TestOverdueAmountCappedByRemaining(t *testing.T) {
	store, svc := newTestService(t)
	ctx := context.Background()

	customer := paidCustomer(500)
	require.NoError(t, store.PutSynced(ctx, &customer))

	project := models.Project{
		ID:                uuid.NewString(),
		CustomerId:        customer.ID,
		ProfileId:         "p1",
		Name:              "Tail End",
		TotalAmount:       decimal.NewFromInt(100),
		InstallmentAmount: decimal.NewFromInt(30),
		StartDate:         "2026-01-01",
		IsActive:          utils.NewTrue(),
	}
	require.NoError(t, store.PutSynced(ctx, &project))

	nearDone := payment(customer.ID, 90, "2026-07-01")
	nearDone.ProjectId = &project.ID
	require.NoError(t, store.PutSynced(ctx, &nearDone))

	overdue, err := svc.OverduePayments(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.True(t, overdue[0].OverdueAmount.Equal(decimal.NewFromInt(10)))
}

func TestProjectAnalytics(t *testing.T) {
	store, svc := newTestService(t)
	ctx := context.Background()

	customer := paidCustomer(500)
	require.NoError(t, store.PutSynced(ctx, &customer))

	done := models.Project{
		ID:          uuid.NewString(),
		CustomerId:  customer.ID,
		ProfileId:   "p1",
		Name:        "Done",
		TotalAmount: decimal.NewFromInt(100),
		StartDate:   "2026-06-01",
		IsActive:    utils.NewFalse(),
	}
	open := models.Project{
		ID:          uuid.NewString(),
		CustomerId:  customer.ID,
		ProfileId:   "p1",
		Name:        "Open",
		TotalAmount: decimal.NewFromInt(300),
		StartDate:   "2026-07-01",
		IsActive:    utils.NewTrue(),
	}
	require.NoError(t, store.PutSynced(ctx, &done))
	require.NoError(t, store.PutSynced(ctx, &open))

	final := payment(customer.ID, 100, "2026-06-11")
	final.ProjectId = &done.ID
	require.NoError(t, store.PutSynced(ctx, &final))

	result, err := svc.ProjectAnalytics(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalProjects)
	assert.Equal(t, 1, result.ActiveProjects)
	assert.Equal(t, 1, result.CompletedProjects)
	assert.Equal(t, 50, result.SuccessRate)
	assert.Equal(t, 10, result.AvgCompletionTime)
	assert.True(t, result.AvgProjectValue.Equal(decimal.NewFromInt(200)))
}

func TestPaymentTrendsMonthlyBuckets(t *testing.T) {
	store, svc := newTestService(t)
	ctx := context.Background()

	c1 := paidCustomer(1000)
	c2 := paidCustomer(1000)
	require.NoError(t, store.PutSynced(ctx, &c1))
	require.NoError(t, store.PutSynced(ctx, &c2))

	for _, inst := range []models.Installment{
		payment(c1.ID, 30, "2026-06-10"),
		payment(c2.ID, 50, "2026-06-20"),
		payment(c1.ID, 20, "2026-07-05"),
		payment(c1.ID, 40, "2020-01-01"),
	} {
		rec := inst
		require.NoError(t, store.PutSynced(ctx, &rec))
	}

	trends, err := svc.PaymentTrends(ctx, "p1", TimeframeMonth)
	require.NoError(t, err)
	require.Len(t, trends, 2)

	assert.Equal(t, "2026-06", trends[0].Period)
	assert.True(t, trends[0].TotalCollected.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, 2, trends[0].UniqueCustomers)
	assert.Equal(t, 2, trends[0].PaymentCount)
	assert.True(t, trends[0].AvgPaymentSize.Equal(decimal.NewFromInt(40)))

	assert.Equal(t, "2026-07", trends[1].Period)
	assert.Equal(t, 1, trends[1].UniqueCustomers)
}

func TestPaymentTrendsInvalidTimeframeDefaultsToMonth(t *testing.T) {
	store, svc := newTestService(t)
	ctx := context.Background()

	customer := paidCustomer(100)
	require.NoError(t, store.PutSynced(ctx, &customer))
	paid := payment(customer.ID, 10, "2026-08-15")
	require.NoError(t, store.PutSynced(ctx, &paid))

	trends, err := svc.PaymentTrends(ctx, "p1", Timeframe("fortnight"))
	require.NoError(t, err)
	require.Len(t, trends, 1)
	assert.Equal(t, "2026-08", trends[0].Period)
}

func TestPeriodKeys(t *testing.T) {
	d := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-Q1", TimeframeQuarter.periodKey(d))
	assert.Equal(t, "2026-02", TimeframeMonth.periodKey(d))
	assert.Equal(t, "2026", TimeframeYear.periodKey(d))

	year, week := d.ISOWeek()
	assert.Equal(t, "2026-W07", TimeframeWeek.periodKey(d))
	assert.Equal(t, 2026, year)
	assert.Equal(t, 7, week)
}
