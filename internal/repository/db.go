package repository

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"remindcal/internal/model"
)

const (
	// DriverCGO is mattn/go-sqlite3, the gorm sqlite default.
	DriverCGO = "sqlite3"
	// DriverPureGo is modernc.org/sqlite.
	DriverPureGo = "sqlite"
)

// Options configures NewDB.
type Options struct {
	DSN    string
	Driver string
}

// NewDB opens the SQLite database once for the process lifetime and runs
// migrations. All repositories share the returned handle.
func NewDB(opts Options, log *zap.Logger) (*gorm.DB, error) {
	if opts.DSN == "" {
		opts.DSN = "remindcal.db"
	}
	if opts.Driver == "" {
		opts.Driver = DriverCGO
	}
	if log == nil {
		log = zap.NewNop()
	}

	if err := ensureDirForSQLite(opts.DSN); err != nil {
		return nil, model.WrapError(model.ErrCodeStorageUnavailable, "prepare db dir", err)
	}

	dbLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	dialector := sqlite.New(sqlite.Config{
		DriverName: opts.Driver,
		DSN:        sqliteDSN(opts.Driver, opts.DSN),
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         dbLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, model.WrapError(model.ErrCodeStorageUnavailable, "open db", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, model.WrapError(model.ErrCodeStorageUnavailable, "open db", err)
	}
	// One connection serialises writes and keeps :memory: databases coherent.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&taskRow{}, &eventRow{}); err != nil {
		return nil, model.WrapError(model.ErrCodeStorageUnavailable, "migrate db", err)
	}

	log.Info("database ready", zap.String("driver", opts.Driver), zap.String("dsn", opts.DSN))
	return db, nil
}

// sqliteDSN adds a busy timeout in the dialect each driver understands.
func sqliteDSN(driver, dsn string) string {
	if strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if driver == DriverPureGo {
		return dsn + sep + "_pragma=" + url.QueryEscape("busy_timeout(5000)")
	}
	return dsn + sep + "_busy_timeout=5000"
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	// Ignore DSNs with explicit mode=memory or network.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	// Strip file: prefix if present.
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
