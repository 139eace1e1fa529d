package offline

import (
	"context"

	"bitbucket.org/mmdatafocus/qist_backend/models"
)

// Writes follow the double-write policy: when online the remote write is
// attempted first and its failure only logged, then the local write with
// its change log entry always happens. The next Push replays the entry and
// the next Pull reconciles the (by then identical) remote value back.

func (s *DataService) AddProfile(ctx context.Context, input *models.NewProfile) (*models.Profile, error) {
	rec := input.ToProfile()
	if s.monitor.IsOnline() {
		if err := s.remote.InsertProfile(ctx, rec); err != nil {
			s.remoteWriteMiss("AddProfile", err)
		}
	}
	if err := s.store.Put(ctx, rec, models.ChangeActionCreate); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *DataService) AddCustomer(ctx context.Context, input *models.NewCustomer) (*models.Customer, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	rec := input.ToCustomer()
	if s.monitor.IsOnline() {
		if err := s.remote.InsertCustomer(ctx, rec); err != nil {
			s.remoteWriteMiss("AddCustomer", err)
		}
	}
	if err := s.store.Put(ctx, rec, models.ChangeActionCreate); err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx, rec.ProfileId)
	return rec, nil
}

// UpdateCustomer replaces the mutable fields of an existing customer. The
// mirror row ends up holding the full new state, which is what a later
// replay pushes.
func (s *DataService) UpdateCustomer(ctx context.Context, id string, input *models.NewCustomer) (*models.Customer, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	rec, err := s.store.CustomerByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Name = input.Name
	rec.Phone = input.Phone
	rec.TotalAmount = input.TotalAmount
	rec.InstallmentAmount = input.InstallmentAmount
	if input.PhotoUrl != nil {
		rec.PhotoUrl = input.PhotoUrl
	}
	if input.DocumentUrl != nil {
		rec.DocumentUrl = input.DocumentUrl
	}
	if input.IsActive != nil {
		rec.IsActive = input.IsActive
	}

	if s.monitor.IsOnline() {
		if err := s.remote.UpdateCustomer(ctx, rec); err != nil {
			s.remoteWriteMiss("UpdateCustomer", err)
		}
	}
	if err := s.store.Put(ctx, rec, models.ChangeActionUpdate); err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx, rec.ProfileId)
	return rec, nil
}

func (s *DataService) DeleteCustomer(ctx context.Context, id string) error {
	rec, err := s.store.CustomerByID(ctx, id)
	if err != nil {
		return err
	}
	if s.monitor.IsOnline() {
		if err := s.remote.DeleteCustomer(ctx, id); err != nil {
			s.remoteWriteMiss("DeleteCustomer", err)
		}
	}
	if err := s.store.Delete(ctx, rec); err != nil {
		return err
	}
	s.invalidateDashboard(ctx, rec.ProfileId)
	return nil
}

func (s *DataService) AddInstallment(ctx context.Context, input *models.NewInstallment) (*models.Installment, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	customer, err := s.store.CustomerByID(ctx, input.CustomerId)
	if err != nil {
		return nil, err
	}
	rec := input.ToInstallment()
	if s.monitor.IsOnline() {
		if err := s.remote.InsertInstallment(ctx, rec); err != nil {
			s.remoteWriteMiss("AddInstallment", err)
		}
	}
	if err := s.store.Put(ctx, rec, models.ChangeActionCreate); err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx, customer.ProfileId)
	return rec, nil
}

func (s *DataService) AddProject(ctx context.Context, input *models.NewProject) (*models.Project, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	rec := input.ToProject()
	if s.monitor.IsOnline() {
		if err := s.remote.InsertProject(ctx, rec); err != nil {
			s.remoteWriteMiss("AddProject", err)
		}
	}
	if err := s.store.Put(ctx, rec, models.ChangeActionCreate); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *DataService) UpdateProject(ctx context.Context, id string, input *models.NewProject) (*models.Project, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	rec, err := s.store.ProjectByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Name = input.Name
	rec.Description = input.Description
	rec.TotalAmount = input.TotalAmount
	rec.InstallmentAmount = input.InstallmentAmount
	rec.StartDate = input.StartDate
	rec.EndDate = input.EndDate
	if input.IsActive != nil {
		rec.IsActive = input.IsActive
	}

	if s.monitor.IsOnline() {
		if err := s.remote.UpdateProject(ctx, rec); err != nil {
			s.remoteWriteMiss("UpdateProject", err)
		}
	}
	if err := s.store.Put(ctx, rec, models.ChangeActionUpdate); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *DataService) AddInvestment(ctx context.Context, input *models.NewInvestment) (*models.Investment, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	rec := input.ToInvestment()
	if s.monitor.IsOnline() {
		if err := s.remote.InsertInvestment(ctx, rec); err != nil {
			s.remoteWriteMiss("AddInvestment", err)
		}
	}
	if err := s.store.Put(ctx, rec, models.ChangeActionCreate); err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx, rec.ProfileId)
	return rec, nil
}

func (s *DataService) DeleteInvestment(ctx context.Context, id string) error {
	rec, err := s.store.GetRecord(ctx, models.TableInvestments, id)
	if err != nil {
		return err
	}
	if s.monitor.IsOnline() {
		if err := s.remote.DeleteInvestment(ctx, id); err != nil {
			s.remoteWriteMiss("DeleteInvestment", err)
		}
	}
	if err := s.store.Delete(ctx, rec); err != nil {
		return err
	}
	if inv, ok := rec.(models.Investment); ok {
		s.invalidateDashboard(ctx, inv.ProfileId)
	}
	return nil
}

// BulkSetCustomerStatus flips is_active for many customers at once. Each
// record gets its own change log entry so the remote converges per record.
func (s *DataService) BulkSetCustomerStatus(ctx context.Context, ids []string, isActive bool) (int64, error) {
	updated, err := s.store.BulkSetActive(ctx, models.TableCustomers, ids, isActive)
	if err != nil {
		return 0, err
	}
	if s.monitor.IsOnline() {
		for _, id := range ids {
			rec, err := s.store.CustomerByID(ctx, id)
			if err != nil {
				continue
			}
			if err := s.remote.UpdateCustomer(ctx, rec); err != nil {
				s.remoteWriteMiss("BulkSetCustomerStatus", err)
			}
		}
	}
	return updated, nil
}

func (s *DataService) BulkSetProjectStatus(ctx context.Context, ids []string, isActive bool) (int64, error) {
	updated, err := s.store.BulkSetActive(ctx, models.TableProjects, ids, isActive)
	if err != nil {
		return 0, err
	}
	if s.monitor.IsOnline() {
		for _, id := range ids {
			rec, err := s.store.ProjectByID(ctx, id)
			if err != nil {
				continue
			}
			if err := s.remote.UpdateProject(ctx, rec); err != nil {
				s.remoteWriteMiss("BulkSetProjectStatus", err)
			}
		}
	}
	return updated, nil
}
