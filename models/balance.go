package models

import "github.com/shopspring/decimal"

// Balances are the derived fields of a Customer or Project. They are
// computed at every read boundary and never persisted. Remaining is not
// clamped: overpayment makes it negative.
type Balances struct {
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
	Progress  int             `json:"progress"`
}

// DeriveBalances sums the given installments against a total. Progress is
// the paid percentage rounded to the nearest whole number, 0 when the total
// itself is zero.
func DeriveBalances(totalAmount decimal.Decimal, installments []Installment) Balances {
	paid := decimal.Zero
	for _, inst := range installments {
		paid = paid.Add(inst.Amount)
	}

	progress := 0
	if totalAmount.IsPositive() {
		progress = int(paid.Div(totalAmount).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	}

	return Balances{
		Paid:      paid,
		Remaining: totalAmount.Sub(paid),
		Progress:  progress,
	}
}

// ApplyCustomerBalances fills the derived fields on a customer.
func ApplyCustomerBalances(customer *Customer, installments []Installment) {
	bal := DeriveBalances(customer.TotalAmount, installments)
	customer.PaidAmount = bal.Paid
	customer.RemainingAmount = bal.Remaining
}

// ApplyProjectBalances fills the derived fields on a project. Only
// installments tagged with the project's id count toward its progress.
func ApplyProjectBalances(project *Project, installments []Installment) {
	scoped := make([]Installment, 0, len(installments))
	for _, inst := range installments {
		if inst.ProjectId != nil && *inst.ProjectId == project.ID {
			scoped = append(scoped, inst)
		}
	}
	bal := DeriveBalances(project.TotalAmount, scoped)
	project.PaidAmount = bal.Paid
	project.RemainingAmount = bal.Remaining
	project.ProgressPercentage = bal.Progress
}

// DashboardStats is the profile-level headline the presentation layer
// renders.
type DashboardStats struct {
	TotalCollected decimal.Decimal `json:"totalCollected"`
	TotalExpected  decimal.Decimal `json:"totalExpected"`
	PendingAmount  decimal.Decimal `json:"pendingAmount"`
}

// ComputeDashboardStats aggregates over already-fetched rows so both the
// remote and the local read path produce identical numbers.
func ComputeDashboardStats(customers []Customer, installments []Installment) DashboardStats {
	expected := decimal.Zero
	for _, c := range customers {
		expected = expected.Add(c.TotalAmount)
	}
	collected := decimal.Zero
	for _, inst := range installments {
		collected = collected.Add(inst.Amount)
	}
	return DashboardStats{
		TotalCollected: collected,
		TotalExpected:  expected,
		PendingAmount:  expected.Sub(collected),
	}
}
