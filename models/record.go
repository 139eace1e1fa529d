package models

// Table names shared by the local mirror and the remote store. The change
// log references records by (table, id), so these strings are part of the
// replication contract and must not drift between stores.
const (
	TableProfiles     = "profiles"
	TableCustomers    = "customers"
	TableInstallments = "installments"
	TableProjects     = "projects"
	TableInvestments  = "investments"
)

// Record is implemented by every replicated entity. IDs are generated
// client-side (UUID) so the same identifier is valid before and after sync.
type Record interface {
	RecordID() string
	RecordTable() string
}

// SyncedTables lists the tables the sync manager replays and pulls, in the
// order Pull refreshes them (owners before owned rows).
var SyncedTables = []string{
	TableProfiles,
	TableCustomers,
	TableInstallments,
	TableProjects,
	TableInvestments,
}
