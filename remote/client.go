// Package remote is the typed query facade over the remote relational
// store. Every operation can fail (network error, remote validation error)
// and failures surface as plain errors: retries and fallback belong to the
// sync manager and the offline facade, never to this layer.
package remote

import (
	"context"

	"bitbucket.org/mmdatafocus/qist_backend/models"
	"bitbucket.org/mmdatafocus/qist_backend/utils"
)

type Client interface {
	// Ping is the reachability probe: a lightweight read against the remote
	// store. It is the authoritative online/offline signal.
	Ping(ctx context.Context) error

	SelectProfiles(ctx context.Context) ([]models.Profile, error)
	InsertProfile(ctx context.Context, rec *models.Profile) error
	UpdateProfile(ctx context.Context, rec *models.Profile) error
	DeleteProfile(ctx context.Context, id string) error

	SelectCustomers(ctx context.Context, profileId string) ([]models.Customer, error)
	SelectCustomer(ctx context.Context, id string) (*models.Customer, error)
	InsertCustomer(ctx context.Context, rec *models.Customer) error
	UpdateCustomer(ctx context.Context, rec *models.Customer) error
	DeleteCustomer(ctx context.Context, id string) error

	SelectInstallments(ctx context.Context, customerId string) ([]models.Installment, error)
	SelectInstallmentsByCustomers(ctx context.Context, customerIds []string) ([]models.Installment, error)
	InsertInstallment(ctx context.Context, rec *models.Installment) error
	UpdateInstallment(ctx context.Context, rec *models.Installment) error
	DeleteInstallment(ctx context.Context, id string) error

	SelectProjects(ctx context.Context, profileId string) ([]models.Project, error)
	SelectProjectsByCustomer(ctx context.Context, customerId string) ([]models.Project, error)
	InsertProject(ctx context.Context, rec *models.Project) error
	UpdateProject(ctx context.Context, rec *models.Project) error
	DeleteProject(ctx context.Context, id string) error

	SelectInvestments(ctx context.Context, profileId string) ([]models.Investment, error)
	InsertInvestment(ctx context.Context, rec *models.Investment) error
	UpdateInvestment(ctx context.Context, rec *models.Investment) error
	DeleteInvestment(ctx context.Context, id string) error
}

// Unconfigured is the Client used when no remote store is configured at
// all. Every operation fails immediately with ErrorRemoteNotConfigured; the
// facade treats that identically to a connectivity failure.
type Unconfigured struct{}

var _ Client = Unconfigured{}

func (Unconfigured) Ping(context.Context) error { return utils.ErrorRemoteNotConfigured }

func (Unconfigured) SelectProfiles(context.Context) ([]models.Profile, error) {
	return nil, utils.ErrorRemoteNotConfigured
}
func (Unconfigured) InsertProfile(context.Context, *models.Profile) error {
	return utils.ErrorRemoteNotConfigured
}
func (Unconfigured) UpdateProfile(context.Context, *models.Profile) error {
	return utils.ErrorRemoteNotConfigured
}
func (Unconfigured) DeleteProfile(context.Context, string) error {
	return utils.ErrorRemoteNotConfigured
}

func (Unconfigured) SelectCustomers(context.Context, string) ([]models.Customer, error) {
	return nil, utils.ErrorRemoteNotConfigured
}
func (Unconfigured) SelectCustomer(context.Context, string) (*models.Customer, error) {
	return nil, utils.ErrorRemoteNotConfigured
}
func (Unconfigured) InsertCustomer(context.Context, *models.Customer) error {
	return utils.ErrorRemoteNotConfigured
}
func (Unconfigured) UpdateCustomer(context.Context, *models.Customer) error {
	return utils.ErrorRemoteNotConfigured
}
func (Unconfigured) DeleteCustomer(context.Context, string) error {
	return utils.ErrorRemoteNotConfigured
}

func (Unconfigured) SelectInstallments(context.Context, string) ([]models.Installment, error) {
	return nil, utils.ErrorRemoteNotConfigured
}
func (Unconfigured) SelectInstallmentsByCustomers(context.Context, []string) ([]models.Installment, error) {
	return nil, utils.ErrorRemoteNotConfigured
}
func (Unconfigured) InsertInstallment(context.Context, *models.Installment) error {
	return utils.ErrorRemoteNotConfigured
}
func (Unconfigured) UpdateInstallment(context.Context, *models.Installment) error {
	return utils.ErrorRemoteNotConfigured
}
func (Unconfigured) DeleteInstallment(context.Context, string) error {
	return utils.ErrorRemoteNotConfigured
}

func (Unconfigured) SelectProjects(context.Context, string) ([]models.Project, error) {
	return nil, utils.ErrorRemoteNotConfigured
}
func (Unconfigured) SelectProjectsByCustomer(context.Context, string) ([]models.Project, error) {
	return nil, utils.ErrorRemoteNotConfigured
}
func (Unconfigured) InsertProject(context.Context, *models.Project) error {
	return utils.ErrorRemoteNotConfigured
}
func (Unconfigured) UpdateProject(context.Context, *models.Project) error {
	return utils.ErrorRemoteNotConfigured
}
func (Unconfigured) DeleteProject(context.Context, string) error {
	return utils.ErrorRemoteNotConfigured
}

func (Unconfigured) SelectInvestments(context.Context, string) ([]models.Investment, error) {
	return nil, utils.ErrorRemoteNotConfigured
}
func (Unconfigured) InsertInvestment(context.Context, *models.Investment) error {
	return utils.ErrorRemoteNotConfigured
}
func (Unconfigured) UpdateInvestment(context.Context, *models.Investment) error {
	return utils.ErrorRemoteNotConfigured
}
func (Unconfigured) DeleteInvestment(context.Context, string) error {
	return utils.ErrorRemoteNotConfigured
}
