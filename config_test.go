package jsonlkv

import "testing"

// A negative ThrottleFS.IntervalMs must be rejected by name — if the
// field weren't checked individually, a caller would only discover
// the mistake much later as a confusing negative-duration panic deep
// inside the writer.
func TestConfigValidateRejectsNegativeThrottleInterval(t *testing.T) {
	_, err := Config{ThrottleFS: ThrottleFS{IntervalMs: -1}}.validate()
	if err == nil {
		t.Fatalf("expected an error for negative IntervalMs")
	}
	if ce, ok := err.(*ConfigError); !ok || ce.Field != "ThrottleFS.IntervalMs" {
		t.Fatalf("err = %v (%T), want *ConfigError{Field: ThrottleFS.IntervalMs}", err, err)
	}
}

// The zero Config must validate successfully and come back with
// usable defaults, since Open(path, Config{}) is the documented
// common case.
func TestConfigValidateDefaults(t *testing.T) {
	cfg, err := Config{}.validate()
	if err != nil {
		t.Fatalf("zero Config must validate: %v", err)
	}
	if cfg.MaxRecordSize != defaultMaxRecordSize {
		t.Fatalf("MaxRecordSize = %d, want default %d", cfg.MaxRecordSize, defaultMaxRecordSize)
	}
}

// Each field named in the config-rejection scenario must be rejected
// individually, by name, at construction.
func TestConfigValidateRejectsOutOfRangeAutoCompact(t *testing.T) {
	cases := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"SizeFactor<=1", Config{AutoCompact: AutoCompact{SizeFactor: 0.9}}, "AutoCompact.SizeFactor"},
		{"SizeFactorMinimumSize<0", Config{AutoCompact: AutoCompact{SizeFactorMinimumSize: -1}}, "AutoCompact.SizeFactorMinimumSize"},
		{"IntervalMs<10", Config{AutoCompact: AutoCompact{IntervalMs: 9}}, "AutoCompact.IntervalMs"},
		{"MinChanges<1 with IntervalMs set", Config{AutoCompact: AutoCompact{IntervalMs: 20, MinChanges: 0}}, "AutoCompact.MinChanges"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.cfg.validate()
			if err == nil {
				t.Fatalf("expected an error")
			}
			ce, ok := err.(*ConfigError)
			if !ok || ce.Field != tc.field {
				t.Fatalf("err = %v (%T), want *ConfigError{Field: %s}", err, err, tc.field)
			}
		})
	}
}

// An explicitly set MaxRecordSize must survive validate() unchanged
// — defaulting must only fill in zero values, never override an
// explicit choice.
func TestConfigValidatePreservesExplicitValues(t *testing.T) {
	cfg, err := Config{MaxRecordSize: 1024}.validate()
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.MaxRecordSize != 1024 {
		t.Fatalf("MaxRecordSize = %d, want 1024 (explicit value must not be overridden)", cfg.MaxRecordSize)
	}
}
