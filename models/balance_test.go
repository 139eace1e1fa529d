package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func inst(customerId string, amount int64) Installment {
	return Installment{CustomerId: customerId, Amount: decimal.NewFromInt(amount)}
}

func TestDeriveBalances(t *testing.T) {
	bal := DeriveBalances(decimal.NewFromInt(100), []Installment{inst("c1", 40), inst("c1", 35)})

	assert.True(t, bal.Paid.Equal(decimal.NewFromInt(75)), "paid = %s", bal.Paid)
	assert.True(t, bal.Remaining.Equal(decimal.NewFromInt(25)), "remaining = %s", bal.Remaining)
	assert.Equal(t, 75, bal.Progress)
}

func TestDeriveBalancesOverpaymentGoesNegative(t *testing.T) {
	bal := DeriveBalances(decimal.NewFromInt(100), []Installment{inst("c1", 120)})

	assert.True(t, bal.Remaining.Equal(decimal.NewFromInt(-20)), "remaining = %s", bal.Remaining)
	assert.Equal(t, 120, bal.Progress)
}

func TestDeriveBalancesZeroTotal(t *testing.T) {
	bal := DeriveBalances(decimal.Zero, []Installment{inst("c1", 10)})

	assert.Equal(t, 0, bal.Progress)
	assert.True(t, bal.Remaining.Equal(decimal.NewFromInt(-10)))
}

func TestDeriveBalancesNoInstallments(t *testing.T) {
	bal := DeriveBalances(decimal.NewFromInt(100), nil)

	assert.True(t, bal.Paid.IsZero())
	assert.True(t, bal.Remaining.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 0, bal.Progress)
}

func TestApplyProjectBalancesScopesByProject(t *testing.T) {
	projectId := "p1"
	otherId := "p2"
	project := Project{ID: projectId, TotalAmount: decimal.NewFromInt(200)}

	installments := []Installment{
		{CustomerId: "c1", ProjectId: &projectId, Amount: decimal.NewFromInt(50)},
		{CustomerId: "c1", ProjectId: &otherId, Amount: decimal.NewFromInt(70)},
		{CustomerId: "c1", Amount: decimal.NewFromInt(30)},
	}

	ApplyProjectBalances(&project, installments)

	assert.True(t, project.PaidAmount.Equal(decimal.NewFromInt(50)), "paid = %s", project.PaidAmount)
	assert.True(t, project.RemainingAmount.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, 25, project.ProgressPercentage)
}

func TestComputeDashboardStats(t *testing.T) {
	customers := []Customer{
		{ID: "c1", TotalAmount: decimal.NewFromInt(100)},
		{ID: "c2", TotalAmount: decimal.NewFromInt(200)},
	}
	installments := []Installment{inst("c1", 40), inst("c2", 60)}

	stats := ComputeDashboardStats(customers, installments)

	assert.True(t, stats.TotalExpected.Equal(decimal.NewFromInt(300)))
	assert.True(t, stats.TotalCollected.Equal(decimal.NewFromInt(100)))
	assert.True(t, stats.PendingAmount.Equal(decimal.NewFromInt(200)))
}

func TestInvestmentTypeIsValid(t *testing.T) {
	assert.True(t, InvestmentTypeCapital.IsValid())
	assert.True(t, InvestmentTypeLoan.IsValid())
	assert.False(t, InvestmentType("dividend").IsValid())
}
