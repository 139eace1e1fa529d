package models

// MirrorModels is the full local mirror schema: the five replicated entity
// tables plus the change log and the sync audit tables.
func MirrorModels() []any {
	return []any{
		&Profile{},
		&Customer{},
		&Installment{},
		&Project{},
		&Investment{},
		&ChangeLogEntry{},
		&SyncRun{},
		&SyncError{},
	}
}

// RemoteModels is the subset that exists in the remote store. The change
// log and sync audit tables are local-only.
func RemoteModels() []any {
	return []any{
		&Profile{},
		&Customer{},
		&Installment{},
		&Project{},
		&Investment{},
	}
}
