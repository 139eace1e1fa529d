package remote

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/qist_backend/models"
	"bitbucket.org/mmdatafocus/qist_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormClient serves deployments where the remote store is a directly
// reachable SQL database (production: MySQL over TCP; tests: SQLite
// in-memory). Inserts are upserts: replaying a create for a record the
// remote already holds must overwrite, not fail, or one duplicate would
// poison every later retry.
type GormClient struct {
	db *gorm.DB
}

var _ Client = (*GormClient)(nil)

func NewGormClient(db *gorm.DB) *GormClient {
	return &GormClient{db: db}
}

// AutoMigrate creates the remote entity tables. Used by dev setups and
// tests; production schemas are managed out of band.
func (c *GormClient) AutoMigrate() error {
	return c.db.AutoMigrate(models.RemoteModels()...)
}

func (c *GormClient) Ping(ctx context.Context) error {
	var probe []models.Profile
	return c.db.WithContext(ctx).Limit(1).Find(&probe).Error
}

func (c *GormClient) upsert(ctx context.Context, rec any) error {
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error
}

func (c *GormClient) SelectProfiles(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	err := c.db.WithContext(ctx).Order("created_at asc").Find(&profiles).Error
	return profiles, err
}

func (c *GormClient) InsertProfile(ctx context.Context, rec *models.Profile) error {
	return c.upsert(ctx, rec)
}

func (c *GormClient) UpdateProfile(ctx context.Context, rec *models.Profile) error {
	return c.db.WithContext(ctx).Save(rec).Error
}

func (c *GormClient) DeleteProfile(ctx context.Context, id string) error {
	return c.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Profile{}).Error
}

func (c *GormClient) SelectCustomers(ctx context.Context, profileId string) ([]models.Customer, error) {
	var customers []models.Customer
	err := c.db.WithContext(ctx).
		Where("profile_id = ?", profileId).
		Order("created_at desc").
		Find(&customers).Error
	return customers, err
}

func (c *GormClient) SelectCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var customer models.Customer
	err := c.db.WithContext(ctx).Take(&customer, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &customer, nil
}

func (c *GormClient) InsertCustomer(ctx context.Context, rec *models.Customer) error {
	return c.upsert(ctx, rec)
}

func (c *GormClient) UpdateCustomer(ctx context.Context, rec *models.Customer) error {
	return c.db.WithContext(ctx).Save(rec).Error
}

func (c *GormClient) DeleteCustomer(ctx context.Context, id string) error {
	return c.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Customer{}).Error
}

func (c *GormClient) SelectInstallments(ctx context.Context, customerId string) ([]models.Installment, error) {
	var installments []models.Installment
	err := c.db.WithContext(ctx).
		Where("customer_id = ?", customerId).
		Order("date desc").
		Find(&installments).Error
	return installments, err
}

func (c *GormClient) SelectInstallmentsByCustomers(ctx context.Context, customerIds []string) ([]models.Installment, error) {
	if len(customerIds) == 0 {
		return nil, nil
	}
	var installments []models.Installment
	err := c.db.WithContext(ctx).
		Where("customer_id IN ?", customerIds).
		Find(&installments).Error
	return installments, err
}

func (c *GormClient) InsertInstallment(ctx context.Context, rec *models.Installment) error {
	return c.upsert(ctx, rec)
}

func (c *GormClient) UpdateInstallment(ctx context.Context, rec *models.Installment) error {
	return c.db.WithContext(ctx).Save(rec).Error
}

func (c *GormClient) DeleteInstallment(ctx context.Context, id string) error {
	return c.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Installment{}).Error
}

func (c *GormClient) SelectProjects(ctx context.Context, profileId string) ([]models.Project, error) {
	var projects []models.Project
	err := c.db.WithContext(ctx).
		Where("profile_id = ?", profileId).
		Order("created_at desc").
		Find(&projects).Error
	return projects, err
}

func (c *GormClient) SelectProjectsByCustomer(ctx context.Context, customerId string) ([]models.Project, error) {
	var projects []models.Project
	err := c.db.WithContext(ctx).
		Where("customer_id = ?", customerId).
		Order("created_at desc").
		Find(&projects).Error
	return projects, err
}

func (c *GormClient) InsertProject(ctx context.Context, rec *models.Project) error {
	return c.upsert(ctx, rec)
}

func (c *GormClient) UpdateProject(ctx context.Context, rec *models.Project) error {
	return c.db.WithContext(ctx).Save(rec).Error
}

func (c *GormClient) DeleteProject(ctx context.Context, id string) error {
	return c.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Project{}).Error
}

func (c *GormClient) SelectInvestments(ctx context.Context, profileId string) ([]models.Investment, error) {
	var investments []models.Investment
	err := c.db.WithContext(ctx).
		Where("profile_id = ?", profileId).
		Order("date desc").
		Find(&investments).Error
	return investments, err
}

func (c *GormClient) InsertInvestment(ctx context.Context, rec *models.Investment) error {
	return c.upsert(ctx, rec)
}

func (c *GormClient) UpdateInvestment(ctx context.Context, rec *models.Investment) error {
	return c.db.WithContext(ctx).Save(rec).Error
}

func (c *GormClient) DeleteInvestment(ctx context.Context, id string) error {
	return c.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Investment{}).Error
}
