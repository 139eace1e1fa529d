package cloudsync

import (
	"context"
	"fmt"
)

// pull refreshes the local mirror from the remote store. Pull runs after
// Push so that just-replayed local changes are not clobbered by stale
// remote reads. Pulled rows are upserted with synced forced on and never
// touch the change log.
func (m *Manager) pull(ctx context.Context, profileId string) error {
	if err := m.pullProfiles(ctx); err != nil {
		return err
	}
	if profileId != "" {
		return m.pullProfileData(ctx, profileId)
	}

	// No target profile: refresh every profile known locally. Profiles that
	// only exist remotely were just mirrored above and are covered too.
	profiles, err := m.store.Profiles(ctx)
	if err != nil {
		return fmt.Errorf("list local profiles: %w", err)
	}
	for _, p := range profiles {
		if err := m.pullProfileData(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) pullProfiles(ctx context.Context) error {
	profiles, err := m.remote.SelectProfiles(ctx)
	if err != nil {
		return fmt.Errorf("pull profiles: %w", err)
	}
	for i := range profiles {
		if err := m.store.PutSynced(ctx, &profiles[i]); err != nil {
			return fmt.Errorf("mirror profile %s: %w", profiles[i].ID, err)
		}
	}
	return nil
}

func (m *Manager) pullProfileData(ctx context.Context, profileId string) error {
	customers, err := m.remote.SelectCustomers(ctx, profileId)
	if err != nil {
		return fmt.Errorf("pull customers: %w", err)
	}
	customerIds := make([]string, 0, len(customers))
	for i := range customers {
		if err := m.store.PutSynced(ctx, &customers[i]); err != nil {
			return fmt.Errorf("mirror customer %s: %w", customers[i].ID, err)
		}
		customerIds = append(customerIds, customers[i].ID)
	}

	if len(customerIds) > 0 {
		installments, err := m.remote.SelectInstallmentsByCustomers(ctx, customerIds)
		if err != nil {
			return fmt.Errorf("pull installments: %w", err)
		}
		for i := range installments {
			if err := m.store.PutSynced(ctx, &installments[i]); err != nil {
				return fmt.Errorf("mirror installment %s: %w", installments[i].ID, err)
			}
		}
	}

	projects, err := m.remote.SelectProjects(ctx, profileId)
	if err != nil {
		return fmt.Errorf("pull projects: %w", err)
	}
	for i := range projects {
		if err := m.store.PutSynced(ctx, &projects[i]); err != nil {
			return fmt.Errorf("mirror project %s: %w", projects[i].ID, err)
		}
	}

	investments, err := m.remote.SelectInvestments(ctx, profileId)
	if err != nil {
		return fmt.Errorf("pull investments: %w", err)
	}
	for i := range investments {
		if err := m.store.PutSynced(ctx, &investments[i]); err != nil {
			return fmt.Errorf("mirror investment %s: %w", investments[i].ID, err)
		}
	}

	return nil
}
