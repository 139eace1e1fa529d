package localstore_test

import (
	"context"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/qist_backend/config"
	"bitbucket.org/mmdatafocus/qist_backend/localstore"
	"bitbucket.org/mmdatafocus/qist_backend/models"
	"bitbucket.org/mmdatafocus/qist_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *localstore.Store {
	t.Helper()
	db, err := config.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	store := localstore.New(db)
	require.NoError(t, store.AutoMigrate())
	return store
}

func testCustomer(profileId string) *models.Customer {
	return &models.Customer{
		ID:          uuid.NewString(),
		ProfileId:   profileId,
		Name:        "Test Customer",
		TotalAmount: decimal.NewFromInt(1000),
		IsActive:    utils.NewTrue(),
		CreatedAt:   time.Now(),
	}
}

func TestPutLogsExactlyOneEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	customer := testCustomer("p1")
	require.NoError(t, store.Put(ctx, customer, models.ChangeActionCreate))

	entries, err := store.UnsyncedEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.TableCustomers, entries[0].Table)
	assert.Equal(t, customer.ID, entries[0].RecordId)
	assert.Equal(t, models.ChangeActionCreate, entries[0].Action)

	rec, err := store.GetRecord(ctx, models.TableCustomers, customer.ID)
	require.NoError(t, err)
	got, ok := rec.(models.Customer)
	require.True(t, ok)
	assert.Equal(t, customer.Name, got.Name)
	assert.False(t, got.Synced)
}

func TestPutSyncedBypassesChangeLog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	customer := testCustomer("p1")
	require.NoError(t, store.PutSynced(ctx, customer))

	entries, err := store.UnsyncedEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	rec, err := store.GetRecord(ctx, models.TableCustomers, customer.ID)
	require.NoError(t, err)
	assert.True(t, rec.(models.Customer).Synced)
}

func TestPutUpsertsOnConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	customer := testCustomer("p1")
	require.NoError(t, store.Put(ctx, customer, models.ChangeActionCreate))

	customer.Name = "Renamed"
	require.NoError(t, store.Put(ctx, customer, models.ChangeActionUpdate))

	rec, err := store.GetRecord(ctx, models.TableCustomers, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", rec.(models.Customer).Name)

	entries, err := store.UnsyncedEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ChangeActionCreate, entries[0].Action)
	assert.Equal(t, models.ChangeActionUpdate, entries[1].Action)
}

func TestDeleteRemovesRowAndLogs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	customer := testCustomer("p1")
	require.NoError(t, store.Put(ctx, customer, models.ChangeActionCreate))
	require.NoError(t, store.Delete(ctx, customer))

	_, err := store.GetRecord(ctx, models.TableCustomers, customer.ID)
	assert.ErrorIs(t, err, utils.ErrorRecordNotFound)

	entries, err := store.UnsyncedEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ChangeActionDelete, entries[1].Action)
}

func TestUnsyncedEntriesAppendOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c1 := testCustomer("p1")
	c2 := testCustomer("p1")
	require.NoError(t, store.Put(ctx, c1, models.ChangeActionCreate))
	require.NoError(t, store.Put(ctx, c2, models.ChangeActionCreate))
	c1.Name = "Updated"
	require.NoError(t, store.Put(ctx, c1, models.ChangeActionUpdate))

	entries, err := store.UnsyncedEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, c1.ID, entries[0].RecordId)
	assert.Equal(t, c2.ID, entries[1].RecordId)
	assert.Equal(t, c1.ID, entries[2].RecordId)
	assert.Equal(t, models.ChangeActionUpdate, entries[2].Action)
}

func TestMarkEntriesSynced(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testCustomer("p1"), models.ChangeActionCreate))
	require.NoError(t, store.Put(ctx, testCustomer("p1"), models.ChangeActionCreate))

	entries, err := store.UnsyncedEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, store.MarkEntriesSynced(ctx, []uint{entries[0].ID}))

	remaining, err := store.UnsyncedEntries(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, entries[1].ID, remaining[0].ID)
}

func TestCompactChangeLogKeepsUnsynced(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	synced := testCustomer("p1")
	pending := testCustomer("p1")
	require.NoError(t, store.Put(ctx, synced, models.ChangeActionCreate))
	require.NoError(t, store.Put(ctx, pending, models.ChangeActionCreate))

	old := time.Now().AddDate(0, 0, -120)
	require.NoError(t, store.DB().
		Model(&models.ChangeLogEntry{}).
		Where("record_id IN ?", []string{synced.ID, pending.ID}).
		Update("timestamp", old).Error)
	require.NoError(t, store.DB().
		Model(&models.ChangeLogEntry{}).
		Where("record_id = ?", synced.ID).
		Update("synced", true).Error)

	deleted, err := store.CompactChangeLog(ctx, time.Now().AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	entries, err := store.UnsyncedEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, pending.ID, entries[0].RecordId)
}

func TestCompactChangeLogKeepsRecentSynced(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	customer := testCustomer("p1")
	require.NoError(t, store.Put(ctx, customer, models.ChangeActionCreate))
	require.NoError(t, store.DB().
		Model(&models.ChangeLogEntry{}).
		Where("record_id = ?", customer.ID).
		Update("synced", true).Error)

	deleted, err := store.CompactChangeLog(ctx, time.Now().AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestBulkSetActiveLogsPerRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c1 := testCustomer("p1")
	c2 := testCustomer("p1")
	require.NoError(t, store.PutSynced(ctx, c1))
	require.NoError(t, store.PutSynced(ctx, c2))

	updated, err := store.BulkSetActive(ctx, models.TableCustomers, []string{c1.ID, c2.ID}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	entries, err := store.UnsyncedEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	customers, err := store.CustomersByProfile(ctx, "p1", false)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	for _, c := range customers {
		require.NotNil(t, c.IsActive)
		assert.False(t, *c.IsActive)
	}

	active, err := store.CustomersByProfile(ctx, "p1", true)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestGetRecordUnknownTable(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRecord(context.Background(), "ledgers", "x")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, utils.ErrorRecordNotFound)
}

func TestInstallmentsByCustomerIDsEmpty(t *testing.T) {
	store := newTestStore(t)

	installments, err := store.InstallmentsByCustomerIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, installments)
}

func TestDailyInstallmentsJoinsProfile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mine := testCustomer("p1")
	other := testCustomer("p2")
	require.NoError(t, store.PutSynced(ctx, mine))
	require.NoError(t, store.PutSynced(ctx, other))

	today := time.Now().Format("2006-01-02")
	require.NoError(t, store.PutSynced(ctx, &models.Installment{
		ID: uuid.NewString(), CustomerId: mine.ID, Amount: decimal.NewFromInt(50), Date: today,
	}))
	require.NoError(t, store.PutSynced(ctx, &models.Installment{
		ID: uuid.NewString(), CustomerId: other.ID, Amount: decimal.NewFromInt(60), Date: today,
	}))
	require.NoError(t, store.PutSynced(ctx, &models.Installment{
		ID: uuid.NewString(), CustomerId: mine.ID, Amount: decimal.NewFromInt(70), Date: "2020-01-01",
	}))

	daily, err := store.DailyInstallments(ctx, "p1", today)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, mine.ID, daily[0].CustomerId)
}

func TestSyncRunLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	started := time.Now()
	run := &models.SyncRun{Status: models.SyncRunStatusRunning, TriggeredBy: models.SyncTriggeredManual, StartedAt: &started}
	require.NoError(t, store.CreateSyncRun(ctx, run))
	require.NotZero(t, run.ID)

	require.NoError(t, store.UpdateSyncRun(ctx, run, map[string]interface{}{
		"status":         models.SyncRunStatusPartial,
		"records_synced": 3,
		"error_count":    1,
	}))
	require.NoError(t, store.CreateSyncError(ctx, &models.SyncError{
		SyncRunId: run.ID,
		Table:     models.TableCustomers,
		RecordId:  "c1",
		ErrorCode: "replay_failed",
		Message:   "connection reset",
		Retryable: true,
	}))

	runs, err := store.RecentSyncRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.SyncRunStatusPartial, runs[0].Status)
	assert.Equal(t, 3, runs[0].RecordsSynced)

	syncErrors, err := store.SyncErrorsByRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, syncErrors, 1)
	assert.True(t, syncErrors[0].Retryable)
}
