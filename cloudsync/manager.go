// Package cloudsync orchestrates full synchronization cycles between the
// local mirror and the remote store: Push (drain the change log outward)
// then Pull (refresh the mirror from the remote authority).
//
// Conflict policy is last-local-write-wins. There is no version vector and
// no merge: a replayed update overwrites whatever the remote holds. This is
// deliberate, documented behavior.
package cloudsync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"bitbucket.org/mmdatafocus/qist_backend/config"
	"bitbucket.org/mmdatafocus/qist_backend/localstore"
	"bitbucket.org/mmdatafocus/qist_backend/models"
	"bitbucket.org/mmdatafocus/qist_backend/remote"
	"bitbucket.org/mmdatafocus/qist_backend/utils"
	"github.com/sirupsen/logrus"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type SyncResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

const probeTimeout = 5 * time.Second

// Manager runs at most one sync cycle at a time, process-wide. A trigger
// while a cycle is in flight is rejected, not queued; the caller retries
// later if it needs guaranteed execution.
type Manager struct {
	store  *localstore.Store
	remote remote.Client
	logger *logrus.Logger

	inFlight atomic.Bool
	mu       sync.Mutex
	status   Status
}

func New(store *localstore.Store, client remote.Client, logger *logrus.Logger) *Manager {
	return &Manager{
		store:  store,
		remote: client,
		logger: logger,
		status: StatusIdle,
	}
}

// Status reports syncing while a cycle runs, otherwise the outcome of the
// most recent cycle (idle before the first one). The presentation layer
// polls this for its status badge.
func (m *Manager) Status() Status {
	if m.inFlight.Load() {
		return StatusSyncing
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Manager) setOutcome(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

// AutoSync is the reconnect hook. Outcomes are logged, not returned:
// nobody is waiting on a reconnect-triggered cycle.
func (m *Manager) AutoSync(ctx context.Context) {
	result := m.triggerSync(ctx, "", models.SyncTriggeredReconnect)
	if !result.Success && m.logger != nil {
		m.logger.WithFields(logrus.Fields{
			"module":   "cloudsync",
			"funcName": "AutoSync",
		}).Info(result.Message)
	}
}

// TriggerSync runs one full Push-then-Pull cycle. With an empty profileId
// the Pull phase covers every profile known locally.
func (m *Manager) TriggerSync(ctx context.Context, profileId string) SyncResult {
	return m.triggerSync(ctx, profileId, models.SyncTriggeredManual)
}

// TriggerSyncBy is TriggerSync with an explicit trigger source for the
// audit record (cli, reconnect).
func (m *Manager) TriggerSyncBy(ctx context.Context, profileId string, triggeredBy string) SyncResult {
	return m.triggerSync(ctx, profileId, triggeredBy)
}

func (m *Manager) triggerSync(ctx context.Context, profileId string, triggeredBy string) SyncResult {
	if !m.inFlight.CompareAndSwap(false, true) {
		return SyncResult{Success: false, Message: "sync already in progress"}
	}
	defer m.inFlight.Store(false)

	m.logCycleStart(ctx, profileId, triggeredBy)

	// Push is only ever attempted when the remote is known reachable at
	// cycle start.
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	err := m.remote.Ping(probeCtx)
	cancel()
	if err != nil {
		m.setOutcome(StatusError)
		return SyncResult{Success: false, Message: "cannot connect to remote store - working offline"}
	}

	started := time.Now()
	run := &models.SyncRun{
		ProfileId:   profileId,
		Status:      models.SyncRunStatusRunning,
		TriggeredBy: triggeredBy,
		StartedAt:   &started,
	}
	if err := m.store.CreateSyncRun(ctx, run); err != nil {
		// Audit only; the cycle itself still runs.
		config.LogError(m.logger, "cloudsync", "triggerSync", "CreateSyncRun", nil, err)
		run = nil
	}

	synced, failed, pushErr := m.push(ctx, run)
	var pullErr error
	if pushErr == nil {
		pullErr = m.pull(ctx, profileId)
	}

	finished := time.Now()
	result := m.finishRun(ctx, run, started, finished, synced, failed, pushErr, pullErr)
	return result
}

// logCycleStart joins the cycle to the request that triggered it via the
// correlation, device and profile ids the HTTP middlewares put on the
// context.
func (m *Manager) logCycleStart(ctx context.Context, profileId string, triggeredBy string) {
	if m.logger == nil {
		return
	}
	fields := logrus.Fields{
		"module":      "cloudsync",
		"funcName":    "triggerSync",
		"triggeredBy": triggeredBy,
	}
	if profileId != "" {
		fields["profileId"] = profileId
	} else if id, ok := utils.GetProfileIdFromContext(ctx); ok && id != "" {
		fields["profileId"] = id
	}
	if id, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		fields["correlationId"] = id
	}
	if id, ok := utils.GetDeviceIdFromContext(ctx); ok {
		fields["deviceId"] = id
	}
	m.logger.WithFields(fields).Info("sync cycle starting")
}

func (m *Manager) finishRun(ctx context.Context, run *models.SyncRun, started, finished time.Time, synced, failed int, pushErr, pullErr error) SyncResult {
	var result SyncResult
	var runStatus string

	switch {
	case pushErr != nil:
		runStatus = models.SyncRunStatusFailed
		result = SyncResult{Success: false, Message: fmt.Sprintf("sync failed: %v", pushErr)}
		m.setOutcome(StatusError)
	case pullErr != nil:
		runStatus = models.SyncRunStatusFailed
		result = SyncResult{Success: false, Message: fmt.Sprintf("sync failed: %v", pullErr)}
		m.setOutcome(StatusError)
	case failed > 0:
		runStatus = models.SyncRunStatusPartial
		result = SyncResult{Success: true, Message: fmt.Sprintf("sync completed: %d records synced, %d left for retry", synced, failed)}
		m.setOutcome(StatusSuccess)
	default:
		runStatus = models.SyncRunStatusSuccess
		result = SyncResult{Success: true, Message: "sync completed successfully"}
		m.setOutcome(StatusSuccess)
	}

	if run != nil {
		updates := map[string]interface{}{
			"status":         runStatus,
			"finished_at":    finished,
			"duration_ms":    finished.Sub(started).Milliseconds(),
			"records_synced": synced,
			"error_count":    failed,
			"message":        result.Message,
		}
		if err := m.store.UpdateSyncRun(ctx, run, updates); err != nil {
			config.LogError(m.logger, "cloudsync", "finishRun", "UpdateSyncRun", nil, err)
		}
	}
	return result
}
