package models

import (
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/qist_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Installment is a single recorded payment against a Customer's (and
// optionally a Project's) total. Installments are append-only: once created
// they are never updated in any flow.
type Installment struct {
	ID         string          `gorm:"primary_key;size:36" json:"id"`
	CustomerId string          `gorm:"index;size:36;not null" json:"customer_id" binding:"required"`
	ProjectId  *string         `gorm:"index;size:36" json:"project_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Date       string          `gorm:"index;size:10;not null" json:"date"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	Synced     bool            `gorm:"index;not null;default:false" json:"synced"`
}

func (i Installment) RecordID() string    { return i.ID }
func (i Installment) RecordTable() string { return TableInstallments }

type NewInstallment struct {
	CustomerId string          `json:"customer_id" binding:"required" validate:"required"`
	ProjectId  *string         `json:"project_id"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	Date       string          `json:"date" binding:"required" validate:"required"`
}

func (input *NewInstallment) Validate() error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("amount must be positive")
	}
	if _, err := time.Parse("2006-01-02", input.Date); err != nil {
		return errors.New("date must be an ISO date (2006-01-02)")
	}
	return nil
}

func (input *NewInstallment) ToInstallment() *Installment {
	return &Installment{
		ID:         uuid.NewString(),
		CustomerId: input.CustomerId,
		ProjectId:  input.ProjectId,
		Amount:     input.Amount,
		Date:       input.Date,
		CreatedAt:  time.Now(),
	}
}
