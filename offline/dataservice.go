// Package offline is the read/write facade the presentation layer talks to.
// Reads try the remote store when the monitor says online and fall back to
// the local mirror on any failure; connectivity never surfaces as an error
// to the caller. Writes always land in the local mirror with a change log
// entry, with a best-effort remote write first when online.
package offline

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/qist_backend/cloudsync"
	"bitbucket.org/mmdatafocus/qist_backend/connectivity"
	"bitbucket.org/mmdatafocus/qist_backend/localstore"
	"bitbucket.org/mmdatafocus/qist_backend/models"
	"bitbucket.org/mmdatafocus/qist_backend/remote"
	"github.com/sirupsen/logrus"
)

const dashboardCacheTTL = 5 * time.Minute

type DataService struct {
	store   *localstore.Store
	remote  remote.Client
	monitor *connectivity.Monitor
	syncer  *cloudsync.Manager
	cache   Cache
	logger  *logrus.Logger
}

func NewDataService(store *localstore.Store, client remote.Client, monitor *connectivity.Monitor, syncer *cloudsync.Manager, cache Cache, logger *logrus.Logger) *DataService {
	return &DataService{
		store:   store,
		remote:  client,
		monitor: monitor,
		syncer:  syncer,
		cache:   cache,
		logger:  logger,
	}
}

func (s *DataService) IsOnline() bool { return s.monitor.IsOnline() }

func (s *DataService) SyncStatus() cloudsync.Status { return s.syncer.Status() }

func (s *DataService) TriggerSync(ctx context.Context, profileId string) cloudsync.SyncResult {
	return s.syncer.TriggerSync(ctx, profileId)
}

// remoteMiss records a failed remote read before the local fallback. The
// unconfigured-remote sentinel is treated exactly like a network failure.
func (s *DataService) remoteMiss(funcName string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(logrus.Fields{
		"module":   "offline",
		"funcName": funcName,
	}).Debug("remote read failed, serving local mirror: ", err)
}

// remoteWriteMiss records a failed best-effort remote write. The local write
// and its change log entry carry the mutation to the next sync cycle.
func (s *DataService) remoteWriteMiss(funcName string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(logrus.Fields{
		"module":   "offline",
		"funcName": funcName,
	}).Debug("remote write failed, queued for sync: ", err)
}

// --- reads ---

func (s *DataService) GetProfiles(ctx context.Context) ([]models.Profile, error) {
	if s.monitor.IsOnline() {
		profiles, err := s.remote.SelectProfiles(ctx)
		if err == nil {
			return profiles, nil
		}
		s.remoteMiss("GetProfiles", err)
	}
	return s.store.Profiles(ctx)
}

func (s *DataService) GetCustomers(ctx context.Context, profileId string, activeOnly bool) ([]models.Customer, error) {
	if s.monitor.IsOnline() {
		customers, err := s.fetchRemoteCustomers(ctx, profileId, activeOnly)
		if err == nil {
			return customers, nil
		}
		s.remoteMiss("GetCustomers", err)
	}

	customers, err := s.store.CustomersByProfile(ctx, profileId, activeOnly)
	if err != nil {
		return nil, err
	}
	return s.applyLocalCustomerBalances(ctx, customers)
}

func (s *DataService) fetchRemoteCustomers(ctx context.Context, profileId string, activeOnly bool) ([]models.Customer, error) {
	customers, err := s.remote.SelectCustomers(ctx, profileId)
	if err != nil {
		return nil, err
	}
	if activeOnly {
		filtered := customers[:0]
		for _, c := range customers {
			if c.IsActive == nil || *c.IsActive {
				filtered = append(filtered, c)
			}
		}
		customers = filtered
	}
	ids := make([]string, len(customers))
	for i := range customers {
		ids[i] = customers[i].ID
	}
	var installments []models.Installment
	if len(ids) > 0 {
		installments, err = s.remote.SelectInstallmentsByCustomers(ctx, ids)
		if err != nil {
			return nil, err
		}
	}
	byCustomer := groupByCustomer(installments)
	for i := range customers {
		models.ApplyCustomerBalances(&customers[i], byCustomer[customers[i].ID])
	}
	return customers, nil
}

func (s *DataService) applyLocalCustomerBalances(ctx context.Context, customers []models.Customer) ([]models.Customer, error) {
	ids := make([]string, len(customers))
	for i := range customers {
		ids[i] = customers[i].ID
	}
	installments, err := s.store.InstallmentsByCustomerIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byCustomer := groupByCustomer(installments)
	for i := range customers {
		models.ApplyCustomerBalances(&customers[i], byCustomer[customers[i].ID])
	}
	return customers, nil
}

func groupByCustomer(installments []models.Installment) map[string][]models.Installment {
	grouped := make(map[string][]models.Installment, len(installments))
	for _, inst := range installments {
		grouped[inst.CustomerId] = append(grouped[inst.CustomerId], inst)
	}
	return grouped
}

func (s *DataService) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	if s.monitor.IsOnline() {
		customer, err := s.remote.SelectCustomer(ctx, id)
		if err == nil {
			installments, instErr := s.remote.SelectInstallments(ctx, id)
			if instErr == nil {
				models.ApplyCustomerBalances(customer, installments)
				return customer, nil
			}
			err = instErr
		}
		s.remoteMiss("GetCustomer", err)
	}

	customer, err := s.store.CustomerByID(ctx, id)
	if err != nil {
		return nil, err
	}
	installments, err := s.store.InstallmentsByCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	models.ApplyCustomerBalances(customer, installments)
	return customer, nil
}

func (s *DataService) GetInstallments(ctx context.Context, customerId string) ([]models.Installment, error) {
	if s.monitor.IsOnline() {
		installments, err := s.remote.SelectInstallments(ctx, customerId)
		if err == nil {
			return installments, nil
		}
		s.remoteMiss("GetInstallments", err)
	}
	return s.store.InstallmentsByCustomer(ctx, customerId)
}

func (s *DataService) GetDailyInstallments(ctx context.Context, profileId string, date string) ([]models.Installment, error) {
	// Served from the mirror only; the remote surface has no per-day join.
	return s.store.DailyInstallments(ctx, profileId, date)
}

func (s *DataService) GetProjects(ctx context.Context, profileId string, activeOnly bool) ([]models.Project, error) {
	if s.monitor.IsOnline() {
		projects, err := s.fetchRemoteProjects(ctx, profileId, activeOnly)
		if err == nil {
			return projects, nil
		}
		s.remoteMiss("GetProjects", err)
	}

	projects, err := s.store.ProjectsByProfile(ctx, profileId, activeOnly)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		installments, err := s.store.InstallmentsByProject(ctx, projects[i].ID)
		if err != nil {
			return nil, err
		}
		models.ApplyProjectBalances(&projects[i], installments)
	}
	return projects, nil
}

func (s *DataService) fetchRemoteProjects(ctx context.Context, profileId string, activeOnly bool) ([]models.Project, error) {
	projects, err := s.remote.SelectProjects(ctx, profileId)
	if err != nil {
		return nil, err
	}
	if activeOnly {
		filtered := projects[:0]
		for _, p := range projects {
			if p.IsActive == nil || *p.IsActive {
				filtered = append(filtered, p)
			}
		}
		projects = filtered
	}
	for i := range projects {
		installments, err := s.remote.SelectInstallments(ctx, projects[i].CustomerId)
		if err != nil {
			return nil, err
		}
		models.ApplyProjectBalances(&projects[i], installments)
	}
	return projects, nil
}

// GetCustomerProjects lists one customer's projects with balances derived
// from that customer's installments.
func (s *DataService) GetCustomerProjects(ctx context.Context, customerId string) ([]models.Project, error) {
	if s.monitor.IsOnline() {
		projects, err := s.fetchRemoteCustomerProjects(ctx, customerId)
		if err == nil {
			return projects, nil
		}
		s.remoteMiss("GetCustomerProjects", err)
	}

	projects, err := s.store.ProjectsByCustomer(ctx, customerId, false)
	if err != nil {
		return nil, err
	}
	installments, err := s.store.InstallmentsByCustomer(ctx, customerId)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		models.ApplyProjectBalances(&projects[i], installments)
	}
	return projects, nil
}

func (s *DataService) fetchRemoteCustomerProjects(ctx context.Context, customerId string) ([]models.Project, error) {
	projects, err := s.remote.SelectProjectsByCustomer(ctx, customerId)
	if err != nil {
		return nil, err
	}
	installments, err := s.remote.SelectInstallments(ctx, customerId)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		models.ApplyProjectBalances(&projects[i], installments)
	}
	return projects, nil
}

func (s *DataService) GetProject(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.store.ProjectByID(ctx, id)
	if err != nil {
		return nil, err
	}
	installments, err := s.store.InstallmentsByProject(ctx, id)
	if err != nil {
		return nil, err
	}
	models.ApplyProjectBalances(project, installments)
	return project, nil
}

func (s *DataService) GetInvestments(ctx context.Context, profileId string) ([]models.Investment, error) {
	if s.monitor.IsOnline() {
		investments, err := s.remote.SelectInvestments(ctx, profileId)
		if err == nil {
			return investments, nil
		}
		s.remoteMiss("GetInvestments", err)
	}
	return s.store.InvestmentsByProfile(ctx, profileId)
}

// GetDashboardStats follows the same read policy as the row reads: when
// online the totals come straight from the remote store, so payments taken
// on another device show up before the next Pull. The mirror path keeps a
// short cache to absorb repeated dashboard polling.
func (s *DataService) GetDashboardStats(ctx context.Context, profileId string) (models.DashboardStats, error) {
	if s.monitor.IsOnline() {
		stats, err := s.fetchRemoteDashboardStats(ctx, profileId)
		if err == nil {
			return stats, nil
		}
		s.remoteMiss("GetDashboardStats", err)
	}

	var stats models.DashboardStats
	if s.cache != nil {
		if ok, err := s.cache.Get(ctx, dashboardKey(profileId), &stats); err == nil && ok {
			return stats, nil
		}
	}

	customers, err := s.store.CustomersByProfile(ctx, profileId, false)
	if err != nil {
		return stats, err
	}
	ids := make([]string, len(customers))
	for i := range customers {
		ids[i] = customers[i].ID
	}
	installments, err := s.store.InstallmentsByCustomerIDs(ctx, ids)
	if err != nil {
		return stats, err
	}
	stats = models.ComputeDashboardStats(customers, installments)

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardKey(profileId), stats, dashboardCacheTTL); err != nil {
			s.remoteMiss("GetDashboardStats", err)
		}
	}
	return stats, nil
}

func (s *DataService) fetchRemoteDashboardStats(ctx context.Context, profileId string) (models.DashboardStats, error) {
	customers, err := s.remote.SelectCustomers(ctx, profileId)
	if err != nil {
		return models.DashboardStats{}, err
	}
	ids := make([]string, len(customers))
	for i := range customers {
		ids[i] = customers[i].ID
	}
	var installments []models.Installment
	if len(ids) > 0 {
		installments, err = s.remote.SelectInstallmentsByCustomers(ctx, ids)
		if err != nil {
			return models.DashboardStats{}, err
		}
	}
	return models.ComputeDashboardStats(customers, installments), nil
}

func (s *DataService) invalidateDashboard(ctx context.Context, profileId string) {
	if s.cache == nil || profileId == "" {
		return
	}
	if err := s.cache.Remove(ctx, dashboardKey(profileId)); err != nil {
		s.remoteWriteMiss("invalidateDashboard", err)
	}
}
