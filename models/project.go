package models

import (
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/qist_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Project scopes a sub-engagement of a Customer. Balance fields behave like
// the Customer's but are filtered by project_id on installments.
type Project struct {
	ID                string          `gorm:"primary_key;size:36" json:"id"`
	CustomerId        string          `gorm:"index;size:36;not null" json:"customer_id" binding:"required"`
	ProfileId         string          `gorm:"index;size:36;not null" json:"profile_id" binding:"required"`
	Name              string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Description       *string         `gorm:"type:text" json:"description"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	InstallmentAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"installment_amount"`
	StartDate         string          `gorm:"size:10;not null" json:"start_date"`
	EndDate           *string         `gorm:"size:10" json:"end_date"`
	IsActive          *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	Synced            bool            `gorm:"index;not null;default:false" json:"synced"`

	PaidAmount         decimal.Decimal `gorm:"-" json:"paid_amount"`
	RemainingAmount    decimal.Decimal `gorm:"-" json:"remaining_amount"`
	ProgressPercentage int             `gorm:"-" json:"progress_percentage"`
}

func (p Project) RecordID() string    { return p.ID }
func (p Project) RecordTable() string { return TableProjects }

type NewProject struct {
	CustomerId        string          `json:"customer_id" binding:"required" validate:"required"`
	ProfileId         string          `json:"profile_id" binding:"required" validate:"required"`
	Name              string          `json:"name" binding:"required" validate:"required"`
	Description       *string         `json:"description"`
	TotalAmount       decimal.Decimal `json:"total_amount" binding:"required"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	StartDate         string          `json:"start_date" binding:"required"`
	EndDate           *string         `json:"end_date"`
	IsActive          *bool           `json:"is_active"`
}

func (input *NewProject) Validate() error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return errors.New("total amount must be positive")
	}
	if _, err := time.Parse("2006-01-02", input.StartDate); err != nil {
		return errors.New("start date must be an ISO date (2006-01-02)")
	}
	if input.EndDate != nil {
		if _, err := time.Parse("2006-01-02", *input.EndDate); err != nil {
			return errors.New("end date must be an ISO date (2006-01-02)")
		}
	}
	return nil
}

func (input *NewProject) ToProject() *Project {
	isActive := input.IsActive
	if isActive == nil {
		isActive = utils.NewTrue()
	}
	return &Project{
		ID:                uuid.NewString(),
		CustomerId:        input.CustomerId,
		ProfileId:         input.ProfileId,
		Name:              input.Name,
		Description:       input.Description,
		TotalAmount:       input.TotalAmount,
		InstallmentAmount: input.InstallmentAmount,
		StartDate:         input.StartDate,
		EndDate:           input.EndDate,
		IsActive:          isActive,
		CreatedAt:         time.Now(),
	}
}
