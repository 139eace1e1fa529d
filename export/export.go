// Package export renders customer and payment data as CSV, JSON or XLSX
// downloads. Data is read from the local mirror so exports work offline.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/qist_backend/localstore"
	"bitbucket.org/mmdatafocus/qist_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

func (f Format) IsValid() bool {
	switch f {
	case FormatCSV, FormatJSON, FormatXLSX:
		return true
	}
	return false
}

func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

type Result struct {
	Data        []byte
	Filename    string
	ContentType string
}

type Service struct {
	store *localstore.Store
	now   func() time.Time
}

func NewService(store *localstore.Store) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) filename(prefix string, format Format) string {
	return fmt.Sprintf("%s_export_%s.%s", prefix, s.now().Format("2006-01-02"), format)
}

// Customers exports every customer of a profile with derived balances.
func (s *Service) Customers(ctx context.Context, profileId string, format Format) (*Result, error) {
	if !format.IsValid() {
		format = FormatCSV
	}
	customers, err := s.store.CustomersByProfile(ctx, profileId, false)
	if err != nil {
		return nil, err
	}
	for i := range customers {
		installments, err := s.store.InstallmentsByCustomer(ctx, customers[i].ID)
		if err != nil {
			return nil, err
		}
		models.ApplyCustomerBalances(&customers[i], installments)
	}

	var data []byte
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(customers, "", "  ")
	case FormatXLSX:
		data, err = customersXLSX(customers)
	default:
		data, err = customersCSV(customers)
	}
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, Filename: s.filename("customers", format), ContentType: format.ContentType()}, nil
}

func customersCSV(customers []models.Customer) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Name", "Phone", "Total Amount", "Paid Amount", "Remaining Amount", "Created Date"}); err != nil {
		return nil, err
	}
	for _, c := range customers {
		row := []string{
			c.Name,
			c.Phone,
			c.TotalAmount.String(),
			c.PaidAmount.String(),
			c.RemainingAmount.String(),
			c.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func customersXLSX(customers []models.Customer) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheetName := "Sheet1"

	f.SetCellValue(sheetName, "A1", "Name")
	f.SetCellValue(sheetName, "B1", "Phone")
	f.SetCellValue(sheetName, "C1", "TotalAmount")
	f.SetCellValue(sheetName, "D1", "PaidAmount")
	f.SetCellValue(sheetName, "E1", "RemainingAmount")
	f.SetCellValue(sheetName, "F1", "CreatedDate")

	for i, c := range customers {
		f.SetCellValue(sheetName, "A"+fmt.Sprint(i+2), c.Name)
		f.SetCellValue(sheetName, "B"+fmt.Sprint(i+2), c.Phone)
		f.SetCellValue(sheetName, "C"+fmt.Sprint(i+2), c.TotalAmount.InexactFloat64())
		f.SetCellValue(sheetName, "D"+fmt.Sprint(i+2), c.PaidAmount.InexactFloat64())
		f.SetCellValue(sheetName, "E"+fmt.Sprint(i+2), c.RemainingAmount.InexactFloat64())
		f.SetCellValue(sheetName, "F"+fmt.Sprint(i+2), c.CreatedAt.Format(time.RFC3339))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PaymentRow is one installment joined with its customer and project names.
type PaymentRow struct {
	Date          string          `json:"date"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	ProjectName   string          `json:"project_name"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Payments exports installments for a profile, newest first, optionally
// bounded by inclusive ISO dates.
func (s *Service) Payments(ctx context.Context, profileId string, startDate, endDate string, format Format) (*Result, error) {
	if !format.IsValid() {
		format = FormatCSV
	}
	rows, err := s.paymentRows(ctx, profileId, startDate, endDate)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(rows, "", "  ")
	case FormatXLSX:
		data, err = paymentsXLSX(rows)
	default:
		data, err = paymentsCSV(rows)
	}
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, Filename: s.filename("payments", format), ContentType: format.ContentType()}, nil
}

func (s *Service) paymentRows(ctx context.Context, profileId string, startDate, endDate string) ([]PaymentRow, error) {
	customers, err := s.store.CustomersByProfile(ctx, profileId, false)
	if err != nil {
		return nil, err
	}
	customerById := make(map[string]models.Customer, len(customers))
	ids := make([]string, len(customers))
	for i, c := range customers {
		customerById[c.ID] = c
		ids[i] = c.ID
	}

	projects, err := s.store.ProjectsByProfile(ctx, profileId, false)
	if err != nil {
		return nil, err
	}
	projectNames := make(map[string]string, len(projects))
	for _, p := range projects {
		projectNames[p.ID] = p.Name
	}

	installments, err := s.store.InstallmentsByCustomerIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]PaymentRow, 0, len(installments))
	for _, inst := range installments {
		if startDate != "" && inst.Date < startDate {
			continue
		}
		if endDate != "" && inst.Date > endDate {
			continue
		}
		row := PaymentRow{
			Date:        inst.Date,
			ProjectName: "N/A",
			Amount:      inst.Amount,
			CreatedAt:   inst.CreatedAt,
		}
		if c, ok := customerById[inst.CustomerId]; ok {
			row.CustomerName = c.Name
			row.CustomerPhone = c.Phone
		}
		if inst.ProjectId != nil {
			if name, ok := projectNames[*inst.ProjectId]; ok {
				row.ProjectName = name
			}
		}
		rows = append(rows, row)
	}

	// Newest first.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date > rows[j].Date })
	return rows, nil
}

func paymentsCSV(rows []PaymentRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Date", "Customer Name", "Customer Phone", "Project Name", "Amount", "Created Date"}); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			r.Date,
			r.CustomerName,
			r.CustomerPhone,
			r.ProjectName,
			r.Amount.String(),
			r.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func paymentsXLSX(rows []PaymentRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheetName := "Sheet1"

	f.SetCellValue(sheetName, "A1", "Date")
	f.SetCellValue(sheetName, "B1", "CustomerName")
	f.SetCellValue(sheetName, "C1", "CustomerPhone")
	f.SetCellValue(sheetName, "D1", "ProjectName")
	f.SetCellValue(sheetName, "E1", "Amount")
	f.SetCellValue(sheetName, "F1", "CreatedDate")

	for i, r := range rows {
		f.SetCellValue(sheetName, "A"+fmt.Sprint(i+2), r.Date)
		f.SetCellValue(sheetName, "B"+fmt.Sprint(i+2), r.CustomerName)
		f.SetCellValue(sheetName, "C"+fmt.Sprint(i+2), r.CustomerPhone)
		f.SetCellValue(sheetName, "D"+fmt.Sprint(i+2), r.ProjectName)
		f.SetCellValue(sheetName, "E"+fmt.Sprint(i+2), r.Amount.InexactFloat64())
		f.SetCellValue(sheetName, "F"+fmt.Sprint(i+2), r.CreatedAt.Format(time.RFC3339))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
