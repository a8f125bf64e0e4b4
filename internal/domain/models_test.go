package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&ConfigOverride{}, &GlobalConfig{}, &AuditLog{}, &MessageLog{}, &Share{}, &ProfileCache{}, &Delivery{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		ConfigOverride{}.TableName(): "config_overrides",
		GlobalConfig{}.TableName():   "global_configs",
		AuditLog{}.TableName():       "audit_logs",
		MessageLog{}.TableName():     "message_logs",
		Share{}.TableName():          "shares",
		ProfileCache{}.TableName():   "profile_caches",
		Delivery{}.TableName():       "deliveries",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("table name %q, want %q", got, want)
		}
	}
}

func TestConfigOverride_UniquePerKeyAndScope(t *testing.T) {
	db := newTestDB(t)
	if !db.Migrator().HasIndex(&ConfigOverride{}, "ux_override_key_scope") {
		t.Fatalf("expected composite index ux_override_key_scope")
	}

	now := time.Now().UTC()
	g1, g2 := "g1", "g2"
	if err := db.Create(&ConfigOverride{Key: "SAVE_IMAGE", ScopeID: &g1, Value: "no", CreatedAt: now, UpdatedAt: now}).Error; err != nil {
		t.Fatalf("insert first: %v", err)
	}
	// Same key, other scope: fine.
	if err := db.Create(&ConfigOverride{Key: "SAVE_IMAGE", ScopeID: &g2, Value: "yes", CreatedAt: now, UpdatedAt: now}).Error; err != nil {
		t.Fatalf("insert other scope: %v", err)
	}
	// Same pair: rejected.
	if err := db.Create(&ConfigOverride{Key: "SAVE_IMAGE", ScopeID: &g1, Value: "yes", CreatedAt: now, UpdatedAt: now}).Error; err == nil {
		t.Fatalf("expected UNIQUE violation on (key, scope_id)")
	}
}

func TestDelivery_PrimaryKeyRejectsDuplicate(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()
	d := &Delivery{ID: "evt-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(d).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.Create(&Delivery{ID: "evt-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}).Error; err == nil {
		t.Fatalf("expected primary key violation")
	}

	var got Delivery
	if err := db.First(&got, "id = ?", "evt-1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if !got.ExpiresAt.After(got.CreatedAt) {
		t.Fatalf("ExpiresAt should be after CreatedAt: %+v", got)
	}
}

func TestShare_TokenUnique(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()
	if err := db.Create(&Share{ScopeID: "g1", Token: "tok", CreatedAt: now}).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.Create(&Share{ScopeID: "g2", Token: "tok", CreatedAt: now}).Error; err == nil {
		t.Fatalf("expected unique violation on token")
	}
}
