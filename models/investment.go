package models

import (
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/qist_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvestmentType string

const (
	InvestmentTypeCapital            InvestmentType = "capital"
	InvestmentTypeLoan               InvestmentType = "loan"
	InvestmentTypeProfitReinvestment InvestmentType = "profit_reinvestment"
)

func (t InvestmentType) IsValid() bool {
	switch t {
	case InvestmentTypeCapital, InvestmentTypeLoan, InvestmentTypeProfitReinvestment:
		return true
	}
	return false
}

// Investment is an independent capital-tracking ledger entry, used for ROI
// analytics. It replicates like every other entity.
type Investment struct {
	ID             string          `gorm:"primary_key;size:36" json:"id"`
	ProfileId      string          `gorm:"index;size:36;not null" json:"profile_id" binding:"required"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	InvestmentType InvestmentType  `gorm:"size:30;not null" json:"investment_type"`
	Description    *string         `gorm:"type:text" json:"description"`
	Date           string          `gorm:"index;size:10;not null" json:"date"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	Synced         bool            `gorm:"index;not null;default:false" json:"synced"`
}

func (i Investment) RecordID() string    { return i.ID }
func (i Investment) RecordTable() string { return TableInvestments }

type NewInvestment struct {
	ProfileId      string          `json:"profile_id" binding:"required" validate:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	InvestmentType InvestmentType  `json:"investment_type" binding:"required"`
	Description    *string         `json:"description"`
	Date           string          `json:"date" binding:"required" validate:"required"`
}

func (input *NewInvestment) Validate() error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("amount must be positive")
	}
	if !input.InvestmentType.IsValid() {
		return errors.New("investment type must be capital, loan or profit_reinvestment")
	}
	if _, err := time.Parse("2006-01-02", input.Date); err != nil {
		return errors.New("date must be an ISO date (2006-01-02)")
	}
	return nil
}

func (input *NewInvestment) ToInvestment() *Investment {
	return &Investment{
		ID:             uuid.NewString(),
		ProfileId:      input.ProfileId,
		Amount:         input.Amount,
		InvestmentType: input.InvestmentType,
		Description:    input.Description,
		Date:           input.Date,
		CreatedAt:      time.Now(),
	}
}
