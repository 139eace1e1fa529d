// Package analytics computes per-customer risk profiles, payment trends and
// portfolio-level aggregates. Everything reads from the local mirror so the
// numbers stay available offline; a sync cycle is what freshens them.
package analytics

import (
	"context"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/qist_backend/localstore"
	"bitbucket.org/mmdatafocus/qist_backend/models"
	"github.com/shopspring/decimal"
)

type Consistency string

const (
	ConsistencyExcellent Consistency = "excellent"
	ConsistencyGood      Consistency = "good"
	ConsistencyFair      Consistency = "fair"
	ConsistencyPoor      Consistency = "poor"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// noPaymentDays stands in for "never paid" when ranking dormant customers.
const noPaymentDays = 999

type CustomerAnalytics struct {
	CustomerId           string          `json:"customer_id"`
	CustomerName         string          `json:"customer_name"`
	TotalProjects        int             `json:"total_projects"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	PaidAmount           decimal.Decimal `json:"paid_amount"`
	RemainingAmount      decimal.Decimal `json:"remaining_amount"`
	CompletionRate       int             `json:"completion_rate"`
	AvgPaymentAmount     decimal.Decimal `json:"avg_payment_amount"`
	DaysSinceLastPayment int             `json:"days_since_last_payment"`
	PaymentConsistency   Consistency     `json:"payment_consistency"`
	RiskLevel            RiskLevel       `json:"risk_level"`
}

type RiskSummary struct {
	HighRisk       int `json:"high_risk"`
	MediumRisk     int `json:"medium_risk"`
	LowRisk        int `json:"low_risk"`
	TotalCustomers int `json:"total_customers"`
}

type RiskReport struct {
	Summary   RiskSummary         `json:"riskSummary"`
	TopRisky  []CustomerAnalytics `json:"topRiskyCustomers"`
	Customers []CustomerAnalytics `json:"allCustomers"`
}

type Service struct {
	store *localstore.Store
	now   func() time.Time
}

func NewService(store *localstore.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// CustomerAnalytics rates every active customer of a profile, sorted by
// paid amount descending.
func (s *Service) CustomerAnalytics(ctx context.Context, profileId string) ([]CustomerAnalytics, error) {
	customers, err := s.store.CustomersByProfile(ctx, profileId, true)
	if err != nil {
		return nil, err
	}

	result := make([]CustomerAnalytics, 0, len(customers))
	for _, customer := range customers {
		installments, err := s.store.InstallmentsByCustomer(ctx, customer.ID)
		if err != nil {
			return nil, err
		}
		projects, err := s.store.ProjectsByCustomer(ctx, customer.ID, false)
		if err != nil {
			return nil, err
		}
		result = append(result, s.rateCustomer(customer, installments, len(projects)))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].PaidAmount.GreaterThan(result[j].PaidAmount)
	})
	return result, nil
}

func (s *Service) rateCustomer(customer models.Customer, installments []models.Installment, projectCount int) CustomerAnalytics {
	bal := models.DeriveBalances(customer.TotalAmount, installments)

	avgPayment := decimal.Zero
	if len(installments) > 0 {
		avgPayment = bal.Paid.Div(decimal.NewFromInt(int64(len(installments)))).Round(2)
	}

	daysSince := daysSinceLastPayment(installments, s.now())

	consistency := ConsistencyPoor
	switch {
	case bal.Progress >= 90:
		consistency = ConsistencyExcellent
	case bal.Progress >= 70:
		consistency = ConsistencyGood
	case bal.Progress >= 50:
		consistency = ConsistencyFair
	}

	risk := RiskLow
	switch {
	case daysSince > 30 || bal.Progress < 50:
		risk = RiskHigh
	case daysSince > 14 || bal.Progress < 70:
		risk = RiskMedium
	}

	return CustomerAnalytics{
		CustomerId:           customer.ID,
		CustomerName:         customer.Name,
		TotalProjects:        projectCount,
		TotalAmount:          customer.TotalAmount,
		PaidAmount:           bal.Paid,
		RemainingAmount:      bal.Remaining,
		CompletionRate:       bal.Progress,
		AvgPaymentAmount:     avgPayment,
		DaysSinceLastPayment: daysSince,
		PaymentConsistency:   consistency,
		RiskLevel:            risk,
	}
}

func daysSinceLastPayment(installments []models.Installment, now time.Time) int {
	var last time.Time
	for _, inst := range installments {
		d, err := time.Parse("2006-01-02", inst.Date)
		if err != nil {
			continue
		}
		if d.After(last) {
			last = d
		}
	}
	if last.IsZero() {
		return noPaymentDays
	}
	return int(now.Sub(last).Hours() / 24)
}

// RiskAnalysis summarizes the risk distribution and surfaces up to ten
// high-risk customers.
func (s *Service) RiskAnalysis(ctx context.Context, profileId string) (*RiskReport, error) {
	customers, err := s.CustomerAnalytics(ctx, profileId)
	if err != nil {
		return nil, err
	}

	report := &RiskReport{Customers: customers}
	report.Summary.TotalCustomers = len(customers)
	for _, c := range customers {
		switch c.RiskLevel {
		case RiskHigh:
			report.Summary.HighRisk++
			if len(report.TopRisky) < 10 {
				report.TopRisky = append(report.TopRisky, c)
			}
		case RiskMedium:
			report.Summary.MediumRisk++
		default:
			report.Summary.LowRisk++
		}
	}
	return report, nil
}

// EnhancedDashboardStats layers capital tracking over the basic dashboard
// numbers.
type EnhancedDashboardStats struct {
	models.DashboardStats
	TotalInvestment decimal.Decimal `json:"totalInvestment"`
	NetProfit       decimal.Decimal `json:"netProfit"`
	Roi             int             `json:"roi"`
}

func (s *Service) EnhancedDashboard(ctx context.Context, profileId string) (EnhancedDashboardStats, error) {
	var stats EnhancedDashboardStats

	customers, err := s.store.CustomersByProfile(ctx, profileId, false)
	if err != nil {
		return stats, err
	}
	ids := make([]string, len(customers))
	for i := range customers {
		ids[i] = customers[i].ID
	}
	installments, err := s.store.InstallmentsByCustomerIDs(ctx, ids)
	if err != nil {
		return stats, err
	}
	stats.DashboardStats = models.ComputeDashboardStats(customers, installments)

	investments, err := s.store.InvestmentsByProfile(ctx, profileId)
	if err != nil {
		return stats, err
	}
	total := decimal.Zero
	for _, inv := range investments {
		total = total.Add(inv.Amount)
	}
	stats.TotalInvestment = total
	stats.NetProfit = stats.TotalCollected.Sub(total)
	if total.IsPositive() {
		stats.Roi = int(stats.NetProfit.Div(total).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	}
	return stats, nil
}

// OverduePayment flags a project with an outstanding balance and no payment
// in over 30 days.
type OverduePayment struct {
	CustomerId     string          `json:"customer_id"`
	CustomerName   string          `json:"customer_name"`
	CustomerPhone  string          `json:"customer_phone"`
	ProjectId      string          `json:"project_id"`
	ProjectName    string          `json:"project_name"`
	OverdueAmount  decimal.Decimal `json:"overdue_amount"`
	DaysOverdue    int             `json:"days_overdue"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
}

func (s *Service) OverduePayments(ctx context.Context, profileId string) ([]OverduePayment, error) {
	customers, err := s.store.CustomersByProfile(ctx, profileId, true)
	if err != nil {
		return nil, err
	}

	var overdue []OverduePayment
	for _, customer := range customers {
		projects, err := s.store.ProjectsByCustomer(ctx, customer.ID, false)
		if err != nil {
			return nil, err
		}
		for _, project := range projects {
			installments, err := s.store.InstallmentsByProject(ctx, project.ID)
			if err != nil {
				return nil, err
			}
			bal := models.DeriveBalances(project.TotalAmount, installments)
			if !bal.Remaining.IsPositive() {
				continue
			}
			days := daysSinceLastPayment(installments, s.now())
			if days <= 30 {
				continue
			}
			amount := project.InstallmentAmount
			if bal.Remaining.LessThan(amount) {
				amount = bal.Remaining
			}
			overdue = append(overdue, OverduePayment{
				CustomerId:     customer.ID,
				CustomerName:   customer.Name,
				CustomerPhone:  customer.Phone,
				ProjectId:      project.ID,
				ProjectName:    project.Name,
				OverdueAmount:  amount,
				DaysOverdue:    days,
				TotalRemaining: bal.Remaining,
			})
		}
	}

	sort.SliceStable(overdue, func(i, j int) bool {
		return overdue[i].DaysOverdue > overdue[j].DaysOverdue
	})
	return overdue, nil
}

// ProjectAnalytics aggregates portfolio health for a profile. A project
// counts as completed once its installments cover its total amount.
type ProjectAnalytics struct {
	TotalProjects     int             `json:"total_projects"`
	ActiveProjects    int             `json:"active_projects"`
	CompletedProjects int             `json:"completed_projects"`
	AvgProjectValue   decimal.Decimal `json:"avg_project_value"`
	AvgCompletionTime int             `json:"avg_completion_time"`
	SuccessRate       int             `json:"project_success_rate"`
}

func (s *Service) ProjectAnalytics(ctx context.Context, profileId string) (ProjectAnalytics, error) {
	var result ProjectAnalytics

	projects, err := s.store.ProjectsByProfile(ctx, profileId, false)
	if err != nil {
		return result, err
	}
	result.TotalProjects = len(projects)

	totalValue := decimal.Zero
	completionDays := 0
	completedWithPayments := 0
	for _, project := range projects {
		totalValue = totalValue.Add(project.TotalAmount)
		if project.IsActive == nil || *project.IsActive {
			result.ActiveProjects++
		}

		installments, err := s.store.InstallmentsByProject(ctx, project.ID)
		if err != nil {
			return result, err
		}
		bal := models.DeriveBalances(project.TotalAmount, installments)
		if bal.Paid.LessThan(project.TotalAmount) {
			continue
		}
		result.CompletedProjects++
		if days, ok := completionTime(project, installments); ok {
			completionDays += days
			completedWithPayments++
		}
	}

	if result.TotalProjects > 0 {
		result.AvgProjectValue = totalValue.Div(decimal.NewFromInt(int64(result.TotalProjects))).Round(2)
		result.SuccessRate = int(float64(result.CompletedProjects) / float64(result.TotalProjects) * 100)
	}
	if completedWithPayments > 0 {
		result.AvgCompletionTime = completionDays / completedWithPayments
	}
	return result, nil
}

func completionTime(project models.Project, installments []models.Installment) (int, bool) {
	start, err := time.Parse("2006-01-02", project.StartDate)
	if err != nil {
		return 0, false
	}
	var last time.Time
	for _, inst := range installments {
		d, err := time.Parse("2006-01-02", inst.Date)
		if err != nil {
			continue
		}
		if d.After(last) {
			last = d
		}
	}
	if last.IsZero() {
		return 0, false
	}
	return int(last.Sub(start).Hours() / 24), true
}
