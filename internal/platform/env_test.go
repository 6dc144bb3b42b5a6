package platform

import "testing"

func TestGetenvOrDefault(t *testing.T) {
	t.Setenv("STAGGER_TEST_VALUE", "set")
	if got := GetenvOrDefault("STAGGER_TEST_VALUE", "fallback"); got != "set" {
		t.Errorf("expected %q, got %q", "set", got)
	}

	if got := GetenvOrDefault("STAGGER_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("expected %q, got %q", "fallback", got)
	}
}

func TestGetenvIntOrDefault(t *testing.T) {
	t.Setenv("STAGGER_TEST_PORT", "9090")
	if got := GetenvIntOrDefault("STAGGER_TEST_PORT", 0); got != 9090 {
		t.Errorf("expected 9090, got %d", got)
	}

	t.Setenv("STAGGER_TEST_PORT", "not-a-number")
	if got := GetenvIntOrDefault("STAGGER_TEST_PORT", 42); got != 42 {
		t.Errorf("expected fallback 42 for an unparseable value, got %d", got)
	}
}

type envTestConfig struct {
	Name string `env:"STAGGER_TEST_NAME"`
	Port int    `env:"STAGGER_TEST_SET_PORT"`
}

func TestSetConfigFromEnvVars(t *testing.T) {
	t.Setenv("STAGGER_TEST_NAME", "widget")
	t.Setenv("STAGGER_TEST_SET_PORT", "8080")

	cfg := &envTestConfig{}
	if err := SetConfigFromEnvVars(cfg); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if cfg.Name != "widget" {
		t.Errorf("expected Name %q, got %q", "widget", cfg.Name)
	}

	if cfg.Port != 8080 {
		t.Errorf("expected Port 8080, got %d", cfg.Port)
	}
}

func TestSetConfigFromEnvVars_RequiresPointer(t *testing.T) {
	if err := SetConfigFromEnvVars(envTestConfig{}); err == nil {
		t.Error("expected an error for a non-pointer argument")
	}
}
