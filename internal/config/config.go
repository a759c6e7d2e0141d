// Package config resolves otto-sync's environment-driven configuration
// surface and the data directory fallback chain.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hkdb/aerion/internal/logging"
)

const (
	defaultCutoffSince  = "2025-12-01"
	defaultPollInterval = 5
	defaultPrefetch     = 100

	defaultInboxFolder = "INBOX"
	defaultSentFolder  = "[Gmail]/Sent Mail"
	defaultTrashFolder = "[Gmail]/Trash"
	defaultSpamFolder  = "[Gmail]/Spam"
)

// Config is the process-wide configuration resolved from OTTO_* env vars.
type Config struct {
	DataDir             string
	CutoffSince         time.Time
	PollIntervalMinutes int
	PrefetchRecent      int
	SafeMode            bool
	Folders             []string
}

// Load reads the OTTO_* environment variables and resolves the data
// directory fallback chain ($OTTO_DATA_DIR -> $HOME/otto/ -> ./otto-data/).
func Load() (Config, error) {
	log := logging.WithComponent("config")

	cutoffStr := envOr("OTTO_CUTOFF_SINCE", defaultCutoffSince)
	cutoff, err := time.Parse("2006-01-02", cutoffStr)
	if err != nil {
		log.Warn().Str("value", cutoffStr).Msg("invalid OTTO_CUTOFF_SINCE, using default")
		cutoff, _ = time.Parse("2006-01-02", defaultCutoffSince)
	}

	poll := defaultPollInterval
	if v := os.Getenv("OTTO_POLL_INTERVAL_MINUTES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			poll = parsed
		}
	}

	prefetch := defaultPrefetch
	if v := os.Getenv("OTTO_PREFETCH_RECENT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			prefetch = parsed
		}
	}

	safeMode := isTruthy(os.Getenv("OTTO_SAFE_MODE"))

	folders := []string{
		envOr("OTTO_FOLDER_INBOX", defaultInboxFolder),
		envOr("OTTO_FOLDER_SENT", defaultSentFolder),
		envOr("OTTO_FOLDER_TRASH", defaultTrashFolder),
		envOr("OTTO_FOLDER_SPAM", defaultSpamFolder),
	}

	dataDir, err := resolveDataDir()
	if err != nil {
		return Config{}, err
	}

	return Config{
		DataDir:             dataDir,
		CutoffSince:         cutoff,
		PollIntervalMinutes: poll,
		PrefetchRecent:      prefetch,
		SafeMode:            safeMode,
		Folders:             folders,
	}, nil
}

// DBPath returns the path to the SQLite database file under DataDir.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "otto.db")
}

// resolveDataDir implements the fallback chain: $OTTO_DATA_DIR -> $HOME/otto/ -> ./otto-data/.
// The first candidate directory that can be created (or already exists) and
// accepts a new file wins.
func resolveDataDir() (string, error) {
	log := logging.WithComponent("config")

	candidates := []string{}
	if v := os.Getenv("OTTO_DATA_DIR"); v != "" {
		candidates = append(candidates, v)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "otto"))
	}
	candidates = append(candidates, "./otto-data")

	var lastErr error
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0700); err != nil {
			lastErr = err
			log.Warn().Err(err).Str("dir", dir).Msg("data directory not usable, trying fallback")
			continue
		}
		probe, err := os.CreateTemp(dir, ".otto-write-check-*")
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Str("dir", dir).Msg("data directory not writable, trying fallback")
			continue
		}
		probe.Close()
		os.Remove(probe.Name())
		return dir, nil
	}
	return "", lastErr
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func isTruthy(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true"
}
