package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.TaskDaySeconds != 120 {
		t.Errorf("TaskDaySeconds = %d, want 120", cfg.TaskDaySeconds)
	}
	if cfg.TimeoutWinner != "impostors" {
		t.Errorf("TimeoutWinner = %s, want impostors", cfg.TimeoutWinner)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TASK_DAY_SECONDS", "45")
	t.Setenv("TIMEOUT_WINNER", "crewmates")

	cfg := Load()
	if cfg.TaskDaySeconds != 45 {
		t.Errorf("TaskDaySeconds = %d, want 45", cfg.TaskDaySeconds)
	}
	if cfg.TimeoutWinner != "crewmates" {
		t.Errorf("TimeoutWinner = %s, want crewmates", cfg.TimeoutWinner)
	}
}

func TestLoadIgnoresGarbage(t *testing.T) {
	t.Setenv("TASK_DAY_SECONDS", "not-a-number")
	t.Setenv("TIMEOUT_WINNER", "nobody")

	cfg := Load()
	if cfg.TaskDaySeconds != 120 {
		t.Errorf("TaskDaySeconds = %d, want default 120", cfg.TaskDaySeconds)
	}
	if cfg.TimeoutWinner != "impostors" {
		t.Errorf("TimeoutWinner = %s, want default impostors", cfg.TimeoutWinner)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv("does-not-exist.env"); err != nil {
		t.Errorf("missing file should be fine, got %v", err)
	}
}
