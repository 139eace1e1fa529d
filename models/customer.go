package models

import (
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/qist_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer owes TotalAmount and pays it off via periodic installments.
// PaidAmount/RemainingAmount are derived at read time (DeriveBalances) and
// never stored; gorm ignores them.
type Customer struct {
	ID                string          `gorm:"primary_key;size:36" json:"id"`
	ProfileId         string          `gorm:"index;size:36;not null" json:"profile_id" binding:"required"`
	Name              string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Phone             string          `gorm:"size:20" json:"phone"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	InstallmentAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"installment_amount"`
	PhotoUrl          *string         `gorm:"size:500" json:"photo_url"`
	DocumentUrl       *string         `gorm:"size:500" json:"document_url"`
	IsActive          *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	Synced            bool            `gorm:"index;not null;default:false" json:"synced"`

	PaidAmount      decimal.Decimal `gorm:"-" json:"paid_amount"`
	RemainingAmount decimal.Decimal `gorm:"-" json:"remaining_amount"`
}

func (c Customer) RecordID() string    { return c.ID }
func (c Customer) RecordTable() string { return TableCustomers }

type NewCustomer struct {
	ProfileId         string          `json:"profile_id" binding:"required" validate:"required"`
	Name              string          `json:"name" binding:"required" validate:"required"`
	Phone             string          `json:"phone"`
	TotalAmount       decimal.Decimal `json:"total_amount" binding:"required"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	PhotoUrl          *string         `json:"photo_url"`
	DocumentUrl       *string         `json:"document_url"`
	IsActive          *bool           `json:"is_active"`
}

func (input *NewCustomer) Validate() error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return errors.New("total amount must be positive")
	}
	if input.InstallmentAmount.IsNegative() {
		return errors.New("installment amount must not be negative")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return errors.New("phone number is not valid")
		}
	}
	return nil
}

func (input *NewCustomer) ToCustomer() *Customer {
	isActive := input.IsActive
	if isActive == nil {
		isActive = utils.NewTrue()
	}
	return &Customer{
		ID:                uuid.NewString(),
		ProfileId:         input.ProfileId,
		Name:              input.Name,
		Phone:             input.Phone,
		TotalAmount:       input.TotalAmount,
		InstallmentAmount: input.InstallmentAmount,
		PhotoUrl:          input.PhotoUrl,
		DocumentUrl:       input.DocumentUrl,
		IsActive:          isActive,
		CreatedAt:         time.Now(),
	}
}
