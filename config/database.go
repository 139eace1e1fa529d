package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	localDB *gorm.DB
)

// GetLocalDB returns the on-device mirror database.
func GetLocalDB() *gorm.DB {
	return localDB
}

func init() {
	// Load env from .env
	godotenv.Load()
	// Do NOT block startup in init() waiting for databases; main() connects
	// after the HTTP listener is up.
}

// ConnectLocalDatabase opens (and creates if needed) the embedded SQLite
// mirror and sets the global handle. The mirror must always be available:
// a failure here is fatal, there is no fallback below the local store.
func ConnectLocalDatabase() error {
	path := strings.TrimSpace(os.Getenv("LOCAL_DB_PATH"))
	if path == "" {
		path = "qist_local.db"
	}

	var err error
	localDB, err = OpenSQLite(path)
	if err != nil {
		return fmt.Errorf("open local database %q: %w", path, err)
	}
	log.Printf("connected to local database (path=%s)", path)
	return nil
}

// OpenSQLite opens a SQLite database with the shared gorm configuration.
// Tests use it directly with in-memory DSNs.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), initConfig())
	if err != nil {
		return nil, err
	}
	if pluginErr := db.Use(otelgorm.NewPlugin()); pluginErr != nil {
		log.Printf("db connected but failed to install otelgorm plugin: %v", pluginErr)
	}
	return db, nil
}

// ConnectRemoteDatabase dials the remote MySQL store when REMOTE_DB_HOST is
// configured. Unlike the local mirror this is allowed to fail: the service
// keeps running offline and the sync manager retries through its probe.
// Returns nil when no remote database is configured.
func ConnectRemoteDatabase() (*gorm.DB, error) {
	dbHost := os.Getenv("REMOTE_DB_HOST")
	if strings.TrimSpace(dbHost) == "" {
		return nil, nil
	}
	dbUser := os.Getenv("REMOTE_DB_USER")
	dbPassword := os.Getenv("REMOTE_DB_PASSWORD")
	dbPort := os.Getenv("REMOTE_DB_PORT")
	dbName := os.Getenv("REMOTE_DB_NAME")

	network := "tcp"
	address := fmt.Sprintf("%s:%s", dbHost, dbPort)
	if strings.HasPrefix(dbHost, "/cloudsql/") {
		network = "unix"
		address = dbHost
	}

	databaseConfig := fmt.Sprintf("%s:%s@%s(%s)/%s?multiStatements=true&parseTime=true&timeout=10s",
		dbUser,
		dbPassword,
		network,
		address,
		dbName,
	)

	db, err := gorm.Open(mysql.Open(databaseConfig), initConfig())
	if err != nil {
		return nil, err
	}

	if sqlDB, derr := db.DB(); derr == nil && sqlDB != nil {
		maxOpen := intFromEnv("REMOTE_DB_MAX_OPEN_CONNS", 10)
		maxIdle := intFromEnv("REMOTE_DB_MAX_IDLE_CONNS", 5)
		connMaxLife := time.Duration(intFromEnv("REMOTE_DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second

		if maxOpen > 0 {
			sqlDB.SetMaxOpenConns(maxOpen)
		}
		if maxIdle >= 0 {
			sqlDB.SetMaxIdleConns(maxIdle)
		}
		if connMaxLife > 0 {
			sqlDB.SetConnMaxLifetime(connMaxLife)
		}
	}

	if pluginErr := db.Use(otelgorm.NewPlugin()); pluginErr != nil {
		log.Printf("remote db connected but failed to install otelgorm plugin: %v", pluginErr)
	}
	log.Printf("connected to remote database (host=%s)", dbHost)
	return db, nil
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return def
	}
	return n
}

func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: initNamingStrategy(),
	}
}

func initLog() logger.Interface {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:      false,
			LogLevel:      logger.Error,
			SlowThreshold: time.Second,
		},
	)
	return newLogger
}

func initNamingStrategy() *schema.NamingStrategy {
	return &schema.NamingStrategy{
		SingularTable: false,
		TablePrefix:   "",
	}
}
