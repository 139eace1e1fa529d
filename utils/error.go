package utils

import "errors"

var (
	ErrorRecordNotFound = errors.New("record not found")

	// ErrorRemoteNotConfigured is raised by any remote-only operation when no
	// remote store has been configured. Callers at the facade layer must treat
	// it exactly like a connectivity failure.
	ErrorRemoteNotConfigured = errors.New("remote store is not configured")
)

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
