package repository

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"flowtrack/internal/model"
)

// NewDB opens a SQLite database, runs migrations, and seeds the level
// requirement table when it is empty.
func NewDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "flowtrack.db"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         dbLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.AutoMigrate(
		&model.Task{},
		&model.Subtask{},
		&model.UserProgress{},
		&model.CompletedTask{},
		&model.DailyCompletion{},
		&model.LevelRequirement{},
		&model.TimerSession{},
	); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	if err := seedLevelRequirements(db); err != nil {
		return nil, fmt.Errorf("seed levels: %w", err)
	}

	return db, nil
}

// seedLevelRequirements fills the reference table on first start. Level 1
// starts at zero; each later level needs 50 XP more than the one before it.
func seedLevelRequirements(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.LevelRequirement{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	const maxLevel = 50
	rows := make([]model.LevelRequirement, 0, maxLevel)
	total := 0
	for lvl := 1; lvl <= maxLevel; lvl++ {
		required := 0
		if lvl > 1 {
			required = 100 + (lvl-2)*50
		}
		total += required
		rows = append(rows, model.LevelRequirement{Level: lvl, XPRequired: required, XPTotal: total})
	}
	return db.Create(&rows).Error
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
