package localstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/qist_backend/models"
	"bitbucket.org/mmdatafocus/qist_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the on-device mirror of all replicated entities plus the change
// log. Application-path writes (Put/Delete/BulkSetActive) append exactly one
// change-log entry per mutated record, in the same transaction as the entity
// write. Pull-path writes (PutSynced) bypass the log so a sync cycle never
// feeds itself.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(models.MirrorModels()...)
}

// Put upserts a record through the application path and logs the mutation.
// rec must be a pointer to one of the replicated entity structs.
func (s *Store) Put(ctx context.Context, rec models.Record, action models.ChangeAction) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error; err != nil {
			return err
		}
		entry := models.ChangeLogEntry{
			Table:     rec.RecordTable(),
			RecordId:  rec.RecordID(),
			Action:    action,
			Timestamp: time.Now(),
		}
		return tx.Create(&entry).Error
	})
}

// PutSynced upserts a record from the pull phase: synced is forced on and no
// change-log entry is written.
func (s *Store) PutSynced(ctx context.Context, rec models.Record) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error; err != nil {
		return err
	}
	return s.MarkRecordSynced(ctx, rec.RecordTable(), rec.RecordID())
}

// Delete removes a record through the application path and logs the
// mutation.
func (s *Store) Delete(ctx context.Context, rec models.Record) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", rec.RecordTable()), rec.RecordID()).Error; err != nil {
			return err
		}
		entry := models.ChangeLogEntry{
			Table:     rec.RecordTable(),
			RecordId:  rec.RecordID(),
			Action:    models.ChangeActionDelete,
			Timestamp: time.Now(),
		}
		return tx.Create(&entry).Error
	})
}

// BulkSetActive flips is_active for the given ids, logging one update entry
// per record.
func (s *Store) BulkSetActive(ctx context.Context, table string, ids []string, isActive bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var updated int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Table(table).Where("id IN ?", ids).Update("is_active", isActive)
		if res.Error != nil {
			return res.Error
		}
		updated = res.RowsAffected
		now := time.Now()
		for _, id := range ids {
			entry := models.ChangeLogEntry{
				Table:     table,
				RecordId:  id,
				Action:    models.ChangeActionUpdate,
				Timestamp: now,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return updated, err
}

// GetRecord loads the current local row for a change-log entry's (table, id)
// pair. Returns utils.ErrorRecordNotFound when the row no longer exists.
func (s *Store) GetRecord(ctx context.Context, table string, id string) (models.Record, error) {
	db := s.db.WithContext(ctx)
	var err error
	switch table {
	case models.TableProfiles:
		var rec models.Profile
		if err = db.Take(&rec, "id = ?", id).Error; err == nil {
			return rec, nil
		}
	case models.TableCustomers:
		var rec models.Customer
		if err = db.Take(&rec, "id = ?", id).Error; err == nil {
			return rec, nil
		}
	case models.TableInstallments:
		var rec models.Installment
		if err = db.Take(&rec, "id = ?", id).Error; err == nil {
			return rec, nil
		}
	case models.TableProjects:
		var rec models.Project
		if err = db.Take(&rec, "id = ?", id).Error; err == nil {
			return rec, nil
		}
	case models.TableInvestments:
		var rec models.Investment
		if err = db.Take(&rec, "id = ?", id).Error; err == nil {
			return rec, nil
		}
	default:
		return nil, fmt.Errorf("unknown table %q", table)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	return nil, err
}

func (s *Store) MarkRecordSynced(ctx context.Context, table string, id string) error {
	return s.db.WithContext(ctx).Table(table).Where("id = ?", id).Update("synced", true).Error
}

// UnsyncedEntries returns the pending change log in append order. Log order
// is causal order for a single record, so the ordering here is what keeps an
// update from replaying before its create.
func (s *Store) UnsyncedEntries(ctx context.Context) ([]models.ChangeLogEntry, error) {
	var entries []models.ChangeLogEntry
	err := s.db.WithContext(ctx).
		Where("synced = ?", false).
		Order("timestamp asc").
		Order("id asc").
		Find(&entries).Error
	return entries, err
}

func (s *Store) MarkEntriesSynced(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.ChangeLogEntry{}).
		Where("id IN ?", ids).
		Update("synced", true).Error
}

// CompactChangeLog deletes synced entries older than the cutoff. Unsynced
// entries are never compacted regardless of age.
func (s *Store) CompactChangeLog(ctx context.Context, olderThan time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("synced = ? AND timestamp < ?", true, olderThan).
		Delete(&models.ChangeLogEntry{})
	return res.RowsAffected, res.Error
}

// --- typed reads ---

func (s *Store) Profiles(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	err := s.db.WithContext(ctx).Order("created_at asc").Find(&profiles).Error
	return profiles, err
}

func (s *Store) CustomersByProfile(ctx context.Context, profileId string, activeOnly bool) ([]models.Customer, error) {
	query := s.db.WithContext(ctx).Where("profile_id = ?", profileId)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var customers []models.Customer
	err := query.Order("created_at desc").Find(&customers).Error
	return customers, err
}

func (s *Store) CustomerByID(ctx context.Context, id string) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.WithContext(ctx).Take(&customer, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &customer, nil
}

func (s *Store) InstallmentsByCustomer(ctx context.Context, customerId string) ([]models.Installment, error) {
	var installments []models.Installment
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerId).
		Order("date desc").
		Find(&installments).Error
	return installments, err
}

func (s *Store) InstallmentsByCustomerIDs(ctx context.Context, customerIds []string) ([]models.Installment, error) {
	if len(customerIds) == 0 {
		return nil, nil
	}
	var installments []models.Installment
	err := s.db.WithContext(ctx).
		Where("customer_id IN ?", customerIds).
		Find(&installments).Error
	return installments, err
}

func (s *Store) InstallmentsByProject(ctx context.Context, projectId string) ([]models.Installment, error) {
	var installments []models.Installment
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectId).
		Find(&installments).Error
	return installments, err
}

// DailyInstallments returns a profile's payments recorded on one day.
func (s *Store) DailyInstallments(ctx context.Context, profileId string, date string) ([]models.Installment, error) {
	var installments []models.Installment
	err := s.db.WithContext(ctx).
		Joins("JOIN customers ON customers.id = installments.customer_id").
		Where("customers.profile_id = ? AND installments.date = ?", profileId, date).
		Find(&installments).Error
	return installments, err
}

func (s *Store) ProjectsByProfile(ctx context.Context, profileId string, activeOnly bool) ([]models.Project, error) {
	query := s.db.WithContext(ctx).Where("profile_id = ?", profileId)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var projects []models.Project
	err := query.Order("created_at desc").Find(&projects).Error
	return projects, err
}

func (s *Store) ProjectsByCustomer(ctx context.Context, customerId string, activeOnly bool) ([]models.Project, error) {
	query := s.db.WithContext(ctx).Where("customer_id = ?", customerId)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var projects []models.Project
	err := query.Order("created_at desc").Find(&projects).Error
	return projects, err
}

func (s *Store) ProjectByID(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).Take(&project, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &project, nil
}

func (s *Store) InvestmentsByProfile(ctx context.Context, profileId string) ([]models.Investment, error) {
	var investments []models.Investment
	err := s.db.WithContext(ctx).
		Where("profile_id = ?", profileId).
		Order("date desc").
		Find(&investments).Error
	return investments, err
}

// --- sync run audit ---

func (s *Store) CreateSyncRun(ctx context.Context, run *models.SyncRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *Store) UpdateSyncRun(ctx context.Context, run *models.SyncRun, updates map[string]interface{}) error {
	return s.db.WithContext(ctx).Model(run).Updates(updates).Error
}

func (s *Store) CreateSyncError(ctx context.Context, syncErr *models.SyncError) error {
	return s.db.WithContext(ctx).Create(syncErr).Error
}

func (s *Store) RecentSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.SyncRun
	err := s.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&runs).Error
	return runs, err
}

func (s *Store) SyncErrorsByRun(ctx context.Context, runId uint) ([]models.SyncError, error) {
	var errs []models.SyncError
	err := s.db.WithContext(ctx).Where("sync_run_id = ?", runId).Find(&errs).Error
	return errs, err
}
