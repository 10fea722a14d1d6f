// Package config loads MeshTalk's runtime configuration from the process
// environment. Unlike the teacher's manager.Config, nothing here persists
// to disk: spec.md's scope has no durable peer registry or invite system,
// only the tunables named in its §6 "Constants (defaults)" table.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every environment-overridable constant the relay, voice
// pipeline, and transport need. Field names mirror spec.md §6 directly.
type Config struct {
	// Port is the UDP port the relay binds, env PORT, default 8000.
	Port int
	// BindHost is the address the relay binds, env BIND_HOST, default "0.0.0.0".
	BindHost string
	// MeshInterface optionally names an L2 mesh interface (e.g. a
	// BATMAN-Adv bat0) for BroadcastAddress to ride over. It is
	// informational only — nothing in this module reads it, and this module
	// does not configure network interfaces itself.
	MeshInterface string

	// BroadcastAddress, when non-empty, enables the cross-peer broadcast
	// exception of spec.md §4.5 and §9 OQ2: a single send to this
	// "host:port" address replaces per-peer unicasts, encrypted to the
	// sender's own public key. Off by default — callers opting in must
	// understand every receiver needs that pre-shared key.
	BroadcastAddress string

	DiscoveryPeriod   time.Duration
	InactiveThreshold time.Duration
	DedupRetention    time.Duration
	DefaultTTL        int
	VoiceTTL          int

	VADThreshold          float64
	SpeechDebounceFrames  int
	SilenceDebounceFrames int

	// CryptoBackend selects the KEM backend by name, e.g. "kyber768" or
	// "x25519". Empty defaults to kyber768 (see crypto.NewBackend).
	CryptoBackend string
}

// Defaults returns the spec's §6 constants with no environment overrides
// applied.
func Defaults() Config {
	return Config{
		Port:                  8000,
		BindHost:              "0.0.0.0",
		DiscoveryPeriod:       30 * time.Second,
		InactiveThreshold:     60 * time.Second,
		DedupRetention:        300 * time.Second,
		DefaultTTL:            3,
		VoiceTTL:              1,
		VADThreshold:          0.5,
		SpeechDebounceFrames:  10,
		SilenceDebounceFrames: 20,
	}
}

// Load builds a Config from Defaults, overridden by any of the recognized
// environment variables that are set. It never errors on a missing
// variable — only a present-but-malformed one.
func Load() (Config, error) {
	cfg := Defaults()

	if v, ok := os.LookupEnv("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, &LoadError{Variable: "PORT", Cause: err}
		}
		cfg.Port = port
	}
	if v, ok := os.LookupEnv("BIND_HOST"); ok {
		cfg.BindHost = v
	}
	if v, ok := os.LookupEnv("MESH_INTERFACE"); ok {
		cfg.MeshInterface = v
	}
	if v, ok := os.LookupEnv("BROADCAST_ADDRESS"); ok {
		cfg.BroadcastAddress = v
	}
	if v, ok := os.LookupEnv("CRYPTO_BACKEND"); ok {
		cfg.CryptoBackend = v
	}

	if err := overrideDuration(&cfg.DiscoveryPeriod, "DISCOVERY_PERIOD_SECONDS"); err != nil {
		return Config{}, err
	}
	if err := overrideDuration(&cfg.InactiveThreshold, "INACTIVE_THRESHOLD_SECONDS"); err != nil {
		return Config{}, err
	}
	if err := overrideDuration(&cfg.DedupRetention, "DEDUP_RETENTION_SECONDS"); err != nil {
		return Config{}, err
	}

	if v, ok := os.LookupEnv("DEFAULT_TTL"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, &LoadError{Variable: "DEFAULT_TTL", Cause: err}
		}
		cfg.DefaultTTL = n
	}
	if v, ok := os.LookupEnv("VOICE_TTL"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, &LoadError{Variable: "VOICE_TTL", Cause: err}
		}
		cfg.VoiceTTL = n
	}
	if v, ok := os.LookupEnv("VAD_THRESHOLD"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, &LoadError{Variable: "VAD_THRESHOLD", Cause: err}
		}
		cfg.VADThreshold = f
	}
	if v, ok := os.LookupEnv("SPEECH_DEBOUNCE_FRAMES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, &LoadError{Variable: "SPEECH_DEBOUNCE_FRAMES", Cause: err}
		}
		cfg.SpeechDebounceFrames = n
	}
	if v, ok := os.LookupEnv("SILENCE_DEBOUNCE_FRAMES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, &LoadError{Variable: "SILENCE_DEBOUNCE_FRAMES", Cause: err}
		}
		cfg.SilenceDebounceFrames = n
	}

	return cfg, nil
}

func overrideDuration(field *time.Duration, envVar string) error {
	v, ok := os.LookupEnv(envVar)
	if !ok {
		return nil
	}
	seconds, err := strconv.Atoi(v)
	if err != nil {
		return &LoadError{Variable: envVar, Cause: err}
	}
	*field = time.Duration(seconds) * time.Second
	return nil
}
