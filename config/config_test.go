package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadConfigDefaultsAndOverrides(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("ALLOWED_ORIGINS", "https://crm.immoflow.com, http://localhost:3000")
	t.Setenv("REMINDER_LOOKAHEAD_MINUTES", "30")
	t.Setenv("REDIS_ENABLED", "true")

	if err := LoadConfig(); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if AppConfig.ServerPort != "3001" || AppConfig.StoreDriver != DriverPostgres {
		t.Errorf("unexpected defaults %+v", AppConfig)
	}
	if !reflect.DeepEqual(AppConfig.AllowedOrigins, []string{"https://crm.immoflow.com", "http://localhost:3000"}) {
		t.Errorf("AllowedOrigins = %v", AppConfig.AllowedOrigins)
	}
	if AppConfig.ReminderLookahead != 30*time.Minute {
		t.Errorf("ReminderLookahead = %v", AppConfig.ReminderLookahead)
	}
	if !AppConfig.Redis.Enabled {
		t.Error("expected redis enabled")
	}
}

func TestLoadConfigRequiresDatabasePassword(t *testing.T) {
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("STORE_DRIVER", DriverPostgres)
	if err := LoadConfig(); err == nil {
		t.Fatal("expected missing DB_PASSWORD error")
	}

	t.Setenv("DEMO_MODE", "true")
	if err := LoadConfig(); err != nil {
		t.Fatalf("demo mode needs no database: %v", err)
	}
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mysql")
	if err := LoadConfig(); err == nil {
		t.Fatal("expected driver error")
	}
}

func TestMaskPassword(t *testing.T) {
	got := maskPassword("host=db port=5432 user=crm password=hunter2 dbname=immoflow")
	if got != "host=db port=5432 user=crm password=***** dbname=immoflow" {
		t.Errorf("maskPassword = %s", got)
	}
}
