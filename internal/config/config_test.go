package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OTTO_DATA_DIR", t.TempDir())
	t.Setenv("OTTO_CUTOFF_SINCE", "")
	t.Setenv("OTTO_POLL_INTERVAL_MINUTES", "")
	t.Setenv("OTTO_PREFETCH_RECENT", "")
	t.Setenv("OTTO_SAFE_MODE", "")
	t.Setenv("OTTO_FOLDER_INBOX", "")
	t.Setenv("OTTO_FOLDER_SENT", "")
	t.Setenv("OTTO_FOLDER_TRASH", "")
	t.Setenv("OTTO_FOLDER_SPAM", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollIntervalMinutes != defaultPollInterval {
		t.Errorf("PollIntervalMinutes = %d, want %d", cfg.PollIntervalMinutes, defaultPollInterval)
	}
	if cfg.PrefetchRecent != defaultPrefetch {
		t.Errorf("PrefetchRecent = %d, want %d", cfg.PrefetchRecent, defaultPrefetch)
	}
	if cfg.SafeMode {
		t.Error("SafeMode = true, want false by default")
	}
	if len(cfg.Folders) != 4 || cfg.Folders[0] != defaultInboxFolder {
		t.Errorf("Folders = %v, want defaults starting with %q", cfg.Folders, defaultInboxFolder)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OTTO_DATA_DIR", t.TempDir())
	t.Setenv("OTTO_CUTOFF_SINCE", "2026-01-15")
	t.Setenv("OTTO_POLL_INTERVAL_MINUTES", "10")
	t.Setenv("OTTO_PREFETCH_RECENT", "50")
	t.Setenv("OTTO_SAFE_MODE", "true")
	t.Setenv("OTTO_FOLDER_INBOX", "Inbox2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollIntervalMinutes != 10 {
		t.Errorf("PollIntervalMinutes = %d, want 10", cfg.PollIntervalMinutes)
	}
	if cfg.PrefetchRecent != 50 {
		t.Errorf("PrefetchRecent = %d, want 50", cfg.PrefetchRecent)
	}
	if !cfg.SafeMode {
		t.Error("SafeMode = false, want true")
	}
	if cfg.Folders[0] != "Inbox2" {
		t.Errorf("Folders[0] = %q, want %q", cfg.Folders[0], "Inbox2")
	}
	if cfg.CutoffSince.Format("2006-01-02") != "2026-01-15" {
		t.Errorf("CutoffSince = %v, want 2026-01-15", cfg.CutoffSince)
	}
}

func TestLoadInvalidCutoffFallsBackToDefault(t *testing.T) {
	t.Setenv("OTTO_DATA_DIR", t.TempDir())
	t.Setenv("OTTO_CUTOFF_SINCE", "not-a-date")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CutoffSince.Format("2006-01-02") != defaultCutoffSince {
		t.Errorf("CutoffSince = %v, want default %s", cfg.CutoffSince, defaultCutoffSince)
	}
}

func TestDBPath(t *testing.T) {
	cfg := Config{DataDir: "/tmp/otto-data"}
	if got, want := cfg.DBPath(), "/tmp/otto-data/otto.db"; got != want {
		t.Errorf("DBPath() = %q, want %q", got, want)
	}
}
