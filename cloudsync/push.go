package cloudsync

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/qist_backend/config"
	"bitbucket.org/mmdatafocus/qist_backend/models"
	"bitbucket.org/mmdatafocus/qist_backend/utils"
)

// push replays every unsynced change log entry against the remote store in
// append order. A failed entry is recorded, skipped and left unsynced for
// the next cycle; it never aborts the phase. Only a local store failure
// (reading the log, marking entries) fails the whole cycle.
func (m *Manager) push(ctx context.Context, run *models.SyncRun) (synced int, failed int, err error) {
	entries, err := m.store.UnsyncedEntries(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("read change log: %w", err)
	}

	var syncedIds []uint
	for _, entry := range entries {
		if err := m.replay(ctx, entry); err != nil {
			failed++
			config.LogError(m.logger, "cloudsync", "push", entry.Table, entry.RecordId, err)
			if run != nil {
				syncErr := &models.SyncError{
					SyncRunId: run.ID,
					Table:     entry.Table,
					RecordId:  entry.RecordId,
					ErrorCode: "replay_failed",
					Message:   err.Error(),
					Retryable: true,
				}
				if err := m.store.CreateSyncError(ctx, syncErr); err != nil {
					config.LogError(m.logger, "cloudsync", "push", "CreateSyncError", nil, err)
				}
			}
			continue
		}
		if entry.Action != models.ChangeActionDelete {
			if err := m.store.MarkRecordSynced(ctx, entry.Table, entry.RecordId); err != nil {
				return synced, failed, fmt.Errorf("mark %s %s synced: %w", entry.Table, entry.RecordId, err)
			}
		}
		syncedIds = append(syncedIds, entry.ID)
		synced++
	}

	if err := m.store.MarkEntriesSynced(ctx, syncedIds); err != nil {
		return synced, failed, fmt.Errorf("mark change log entries synced: %w", err)
	}
	return synced, failed, nil
}

func (m *Manager) replay(ctx context.Context, entry models.ChangeLogEntry) error {
	if entry.Action == models.ChangeActionDelete {
		return m.deleteRemote(ctx, entry.Table, entry.RecordId)
	}

	rec, err := m.store.GetRecord(ctx, entry.Table, entry.RecordId)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		// Deleted locally after the entry was logged. Nothing to push;
		// the delete entry that follows (if any) handles the remote side.
		return nil
	}
	if err != nil {
		return err
	}

	if entry.Action == models.ChangeActionCreate {
		return m.insertRemote(ctx, rec)
	}
	return m.updateRemote(ctx, rec)
}

func (m *Manager) insertRemote(ctx context.Context, rec models.Record) error {
	switch v := rec.(type) {
	case models.Profile:
		return m.remote.InsertProfile(ctx, &v)
	case models.Customer:
		return m.remote.InsertCustomer(ctx, &v)
	case models.Installment:
		return m.remote.InsertInstallment(ctx, &v)
	case models.Project:
		return m.remote.InsertProject(ctx, &v)
	case models.Investment:
		return m.remote.InsertInvestment(ctx, &v)
	}
	return fmt.Errorf("unknown record type for table %s", rec.RecordTable())
}

func (m *Manager) updateRemote(ctx context.Context, rec models.Record) error {
	switch v := rec.(type) {
	case models.Profile:
		return m.remote.UpdateProfile(ctx, &v)
	case models.Customer:
		return m.remote.UpdateCustomer(ctx, &v)
	case models.Installment:
		return m.remote.UpdateInstallment(ctx, &v)
	case models.Project:
		return m.remote.UpdateProject(ctx, &v)
	case models.Investment:
		return m.remote.UpdateInvestment(ctx, &v)
	}
	return fmt.Errorf("unknown record type for table %s", rec.RecordTable())
}

func (m *Manager) deleteRemote(ctx context.Context, table string, id string) error {
	switch table {
	case models.TableProfiles:
		return m.remote.DeleteProfile(ctx, id)
	case models.TableCustomers:
		return m.remote.DeleteCustomer(ctx, id)
	case models.TableInstallments:
		return m.remote.DeleteInstallment(ctx, id)
	case models.TableProjects:
		return m.remote.DeleteProject(ctx, id)
	case models.TableInvestments:
		return m.remote.DeleteInvestment(ctx, id)
	}
	return fmt.Errorf("unknown table %s", table)
}
