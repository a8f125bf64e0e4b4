package repo

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/chat-archiver/internal/domain"
)

func TestOpenSQLite_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "nested", "app.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.Exec("CREATE TABLE t (id INTEGER)").Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
}

func TestOpenSQLite_ErrorWhenParentIsFile(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	db, err := OpenSQLite(filepath.Join(blocker, "app.db"))
	if err == nil || db != nil {
		t.Fatalf("expected error, got db=%v err=%v", db, err)
	}
}

func TestSqliteDSN(t *testing.T) {
	dsn := sqliteDSN("/var/lib/archiver/app.db")
	if !strings.HasPrefix(dsn, "file:/var/lib/archiver/app.db?") {
		t.Fatalf("dsn = %q", dsn)
	}
	if strings.Count(dsn, "_pragma=") != len(sqlitePragmas) {
		t.Fatalf("dsn pragmas = %q", dsn)
	}
}

func TestOpenSQLite_SetsPragmas_Pool_AndAutoMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	var (
		journalMode string
		busyMS      int
		fk          int
	)
	if err := db.Raw("PRAGMA journal_mode;").Row().Scan(&journalMode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if strings.ToLower(journalMode) != "wal" {
		t.Fatalf("expected journal_mode=wal, got %q", journalMode)
	}
	if err := db.Raw("PRAGMA busy_timeout;").Row().Scan(&busyMS); err != nil {
		t.Fatalf("PRAGMA busy_timeout: %v", err)
	}
	if busyMS != 5000 {
		t.Fatalf("expected busy_timeout=5000, got %d", busyMS)
	}
	if err := db.Raw("PRAGMA foreign_keys;").Row().Scan(&fk); err != nil || fk != 1 {
		t.Fatalf("expected foreign_keys=1, got %d (%v)", fk, err)
	}
	if stats := sqlDB.Stats(); stats.MaxOpenConnections != 10 {
		t.Fatalf("expected MaxOpenConnections=10, got %d", stats.MaxOpenConnections)
	}

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	m := db.Migrator()
	for _, tbl := range []any{
		&domain.ConfigOverride{}, &domain.GlobalConfig{}, &domain.AuditLog{},
		&domain.MessageLog{}, &domain.Share{}, &domain.ProfileCache{}, &domain.Delivery{},
	} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}

	now := time.Now().UTC()
	if err := db.Create(&domain.Delivery{ID: "d1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}).Error; err != nil {
		t.Fatalf("insert delivery: %v", err)
	}
}

func TestGormLogger_LevelsAndTrace(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)

	l := NewGormLogger(time.Millisecond)
	fc := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), fc, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Fatalf("record-not-found must not be logged at warn level: %s", buf.String())
	}

	l.Trace(context.Background(), time.Now(), fc, errors.New("disk I/O error"))
	if !strings.Contains(buf.String(), `"level":"error"`) || !strings.Contains(buf.String(), `"sql":"SELECT 1"`) {
		t.Fatalf("expected error trace, got %s", buf.String())
	}

	buf.Reset()
	l.Trace(context.Background(), time.Now().Add(-time.Second), fc, nil)
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Fatalf("expected slow query warning, got %s", buf.String())
	}

	buf.Reset()
	l.LogMode(logger.Silent).Trace(context.Background(), time.Now().Add(-time.Second), fc, errors.New("x"))
	l.Info(context.Background(), "hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("silent/info must not log at warn level: %s", buf.String())
	}
}
