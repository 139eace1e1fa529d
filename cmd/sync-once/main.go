// sync-once runs a single Push-then-Pull cycle against the configured
// remote store and prints the outcome. Meant for cron jobs and for kicking
// a sync from the shell on the shop machine.
//
// Usage (from backend directory):
//   LOCAL_DB_PATH=... REMOTE_DB_HOST=... go run ./cmd/sync-once [-profile <id>] [-compact]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/qist_backend/cloudsync"
	"bitbucket.org/mmdatafocus/qist_backend/config"
	"bitbucket.org/mmdatafocus/qist_backend/localstore"
	"bitbucket.org/mmdatafocus/qist_backend/remote"
	"bitbucket.org/mmdatafocus/qist_backend/utils"
)

func main() {
	profileId := flag.String("profile", "", "sync a single profile (default: all local profiles)")
	compact := flag.Bool("compact", false, "compact synced change log entries after the cycle")
	flag.Parse()

	ctx := context.Background()
	logger := config.GetLogger()

	if err := config.ConnectLocalDatabase(); err != nil {
		fmt.Fprintf(os.Stderr, "cannot open local mirror: %v\n", err)
		os.Exit(1)
	}
	store := localstore.New(config.GetLocalDB())
	if err := store.AutoMigrate(); err != nil {
		fmt.Fprintf(os.Stderr, "cannot migrate local mirror: %v\n", err)
		os.Exit(1)
	}

	client := buildRemoteClient()
	if _, ok := client.(remote.Unconfigured); ok {
		fmt.Fprintln(os.Stderr, "no remote store configured. Set REMOTE_API_URL or REMOTE_DB_* env vars.")
		os.Exit(2)
	}

	syncer := cloudsync.New(store, client, logger)
	result := syncer.TriggerSyncBy(ctx, *profileId, "cli")
	if !result.Success {
		fmt.Fprintf(os.Stderr, "sync failed: %s\n", result.Message)
		os.Exit(1)
	}
	fmt.Println(result.Message)

	if *compact {
		retention := utils.IntFromEnv("CHANGELOG_RETENTION_DAYS", 90)
		cutoff := time.Now().AddDate(0, 0, -retention)
		removed, err := store.CompactChangeLog(ctx, cutoff)
		if err != nil {
			fmt.Fprintf(os.Stderr, "compaction failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("compacted %d change log entries older than %d days\n", removed, retention)
	}
}

func buildRemoteClient() remote.Client {
	if baseURL := strings.TrimSpace(os.Getenv("REMOTE_API_URL")); baseURL != "" {
		client, err := remote.NewRestClient(baseURL, os.Getenv("REMOTE_API_KEY"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid REMOTE_API_URL: %v\n", err)
			os.Exit(2)
		}
		return client
	}
	db, err := config.ConnectRemoteDatabase()
	if err != nil {
		fmt.Fprintf(os.Stderr, "remote database unreachable: %v\n", err)
		os.Exit(1)
	}
	if db == nil {
		return remote.Unconfigured{}
	}
	return remote.NewGormClient(db)
}
