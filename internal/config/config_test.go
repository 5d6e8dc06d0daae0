package config_test

import (
	"testing"

	"github.com/maxwell903/sdr-lead-rotation/internal/config"
)

func TestDefaults(t *testing.T) {
	if err := config.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if got := config.GetInt("sequence.cap"); got != 100 {
		t.Errorf("sequence.cap default = %d, want 100", got)
	}
	if got := config.GetString("eligibility.property-match"); got != "any" {
		t.Errorf("eligibility.property-match default = %s, want any", got)
	}
	if got := config.GetBool("hits.window-aware-mfr"); !got {
		t.Error("hits.window-aware-mfr default should be true")
	}
	if got := config.GetDuration("lock-timeout"); got.Seconds() != 5 {
		t.Errorf("lock-timeout default = %v, want 5s", got)
	}
}

func TestGetActorPrefersFlagThenConfig(t *testing.T) {
	if err := config.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if got := config.GetActor("flag-actor"); got != "flag-actor" {
		t.Errorf("GetActor() = %s, want flag-actor", got)
	}

	config.Set("actor", "config-actor")
	if got := config.GetActor(""); got != "config-actor" {
		t.Errorf("GetActor() = %s, want config-actor", got)
	}
}

func TestSetAndGet(t *testing.T) {
	if err := config.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	config.Set("db", "/tmp/rotation.db")
	if got := config.GetString("db"); got != "/tmp/rotation.db" {
		t.Errorf("GetString(db) = %s, want /tmp/rotation.db", got)
	}
}
