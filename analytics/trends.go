package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type Timeframe string

const (
	TimeframeWeek    Timeframe = "week"
	TimeframeMonth   Timeframe = "month"
	TimeframeQuarter Timeframe = "quarter"
	TimeframeYear    Timeframe = "year"
)

func (t Timeframe) IsValid() bool {
	switch t {
	case TimeframeWeek, TimeframeMonth, TimeframeQuarter, TimeframeYear:
		return true
	}
	return false
}

// lookback returns how far back the trend window reaches.
func (t Timeframe) lookback(now time.Time) time.Time {
	switch t {
	case TimeframeWeek:
		return now.AddDate(0, 0, -12*7)
	case TimeframeQuarter:
		return now.AddDate(0, -8*3, 0)
	case TimeframeYear:
		return now.AddDate(-5, 0, 0)
	default:
		return now.AddDate(0, -12, 0)
	}
}

func (t Timeframe) periodKey(d time.Time) string {
	switch t {
	case TimeframeWeek:
		year, week := d.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case TimeframeQuarter:
		quarter := (int(d.Month())-1)/3 + 1
		return fmt.Sprintf("%d-Q%d", d.Year(), quarter)
	case TimeframeYear:
		return fmt.Sprintf("%d", d.Year())
	default:
		return fmt.Sprintf("%d-%02d", d.Year(), d.Month())
	}
}

type PaymentTrend struct {
	Period          string          `json:"period"`
	TotalCollected  decimal.Decimal `json:"total_collected"`
	UniqueCustomers int             `json:"unique_customers"`
	PaymentCount    int             `json:"payment_count"`
	AvgPaymentSize  decimal.Decimal `json:"avg_payment_size"`
}

// PaymentTrends buckets a profile's installments into calendar periods,
// oldest first. Installments with unparseable dates are skipped.
func (s *Service) PaymentTrends(ctx context.Context, profileId string, timeframe Timeframe) ([]PaymentTrend, error) {
	if !timeframe.IsValid() {
		timeframe = TimeframeMonth
	}

	customers, err := s.store.CustomersByProfile(ctx, profileId, false)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(customers))
	for i := range customers {
		ids[i] = customers[i].ID
	}
	installments, err := s.store.InstallmentsByCustomerIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	cutoff := timeframe.lookback(s.now())

	type bucket struct {
		collected decimal.Decimal
		customers map[string]struct{}
		count     int
	}
	buckets := make(map[string]*bucket)
	for _, inst := range installments {
		d, err := time.Parse("2006-01-02", inst.Date)
		if err != nil || d.Before(cutoff) {
			continue
		}
		key := timeframe.periodKey(d)
		b := buckets[key]
		if b == nil {
			b = &bucket{collected: decimal.Zero, customers: make(map[string]struct{})}
			buckets[key] = b
		}
		b.collected = b.collected.Add(inst.Amount)
		b.customers[inst.CustomerId] = struct{}{}
		b.count++
	}

	trends := make([]PaymentTrend, 0, len(buckets))
	for period, b := range buckets {
		avg := decimal.Zero
		if b.count > 0 {
			avg = b.collected.Div(decimal.NewFromInt(int64(b.count))).Round(2)
		}
		trends = append(trends, PaymentTrend{
			Period:          period,
			TotalCollected:  b.collected,
			UniqueCustomers: len(b.customers),
			PaymentCount:    b.count,
			AvgPaymentSize:  avg,
		})
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Period < trends[j].Period })
	return trends, nil
}
