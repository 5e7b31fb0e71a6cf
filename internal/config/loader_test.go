package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Ning0612/sftpsweep/internal/domain"
	"github.com/Ning0612/sftpsweep/internal/logger"
)

const sampleConfig = `
state_dir: /var/lib/sftpsweep
log:
  level: debug
  format: json
  file:
    enabled: true
    max_backups: 2
profiles:
  Nightly:
    host: sftp.example.com
    username: svc
    password: secret
    parent_folder: /data/outbox
    archive_folder: /data/outbox/Archive
  keep-forever:
    host: files.example.com
    username: svc
    key_file: /etc/sftpsweep/id_ed25519
    port: 2222
    parent_folder: /in
    archive_folder: /old
    move_threshold_days: 0
    delete_threshold_days: 3650
    schedule: "*/15 * * * *"
    connect_timeout: 5s
    max_depth: 8
`

func TestLoadFromString(t *testing.T) {
	cfg, err := LoadFromString(sampleConfig)
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}

	if cfg.StateDir != "/var/lib/sftpsweep" {
		t.Errorf("StateDir = %q", cfg.StateDir)
	}
	if len(cfg.Profiles) != 2 {
		t.Fatalf("len(Profiles) = %d, want 2", len(cfg.Profiles))
	}

	nightly, err := cfg.GetProfile("NIGHTLY")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if nightly.Name != "nightly" {
		t.Errorf("Name = %q, want nightly", nightly.Name)
	}
	if nightly.Transport != domain.TransportSFTP {
		t.Errorf("Transport = %q, want sftp", nightly.Transport)
	}
	if nightly.Port != domain.DefaultPort {
		t.Errorf("Port = %d, want %d", nightly.Port, domain.DefaultPort)
	}
	if nightly.MoveThresholdDays != domain.DefaultMoveThresholdDays || nightly.DeleteThresholdDays != domain.DefaultDeleteThresholdDays {
		t.Errorf("thresholds = %d/%d, want defaults", nightly.MoveThresholdDays, nightly.DeleteThresholdDays)
	}
	if nightly.Schedule != domain.DefaultSchedule {
		t.Errorf("Schedule = %q", nightly.Schedule)
	}
	if nightly.ConnectTimeout != domain.DefaultConnectTimeout {
		t.Errorf("ConnectTimeout = %v", nightly.ConnectTimeout)
	}
	if nightly.MaxDepth != domain.DefaultMaxDepth {
		t.Errorf("MaxDepth = %d", nightly.MaxDepth)
	}

	keep, err := cfg.GetProfile("keep-forever")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if keep.Port != 2222 || keep.MaxDepth != 8 || keep.ConnectTimeout != 5*time.Second {
		t.Errorf("explicit values not kept: %+v", keep)
	}
	if keep.MoveThresholdDays != 0 {
		t.Errorf("explicit zero threshold replaced with %d", keep.MoveThresholdDays)
	}
	if keep.DeleteThresholdDays != 3650 {
		t.Errorf("DeleteThresholdDays = %d", keep.DeleteThresholdDays)
	}
}

func TestLoadFromString_LogSection(t *testing.T) {
	cfg, err := LoadFromString(sampleConfig)
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}

	lc := cfg.LoggerConfig()
	if lc.Level != logger.LevelDebug {
		t.Errorf("Level = %v, want debug", lc.Level)
	}
	if lc.Format != logger.FormatJSON {
		t.Errorf("Format = %v, want json", lc.Format)
	}
	if !lc.File.Enabled {
		t.Fatal("file logging should be enabled")
	}
	if lc.File.Path != filepath.Join("/var/lib/sftpsweep", DefaultLogFile) {
		t.Errorf("File.Path = %q", lc.File.Path)
	}
	if lc.File.MaxBackups != 2 {
		t.Errorf("MaxBackups = %d, want 2", lc.File.MaxBackups)
	}
	if lc.File.MaxSizeMB != 10 || lc.File.MaxAgeDays != 30 || !lc.File.Compress {
		t.Errorf("rotation defaults not applied: %+v", lc.File)
	}
	// keep-forever uses a key without passphrase
	if len(lc.Secrets) != 1 || lc.Secrets[0] != "secret" {
		t.Errorf("Secrets = %v, want [secret]", lc.Secrets)
	}
}

func TestLoadFromString_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", "profiles: [unclosed"},
		{"no profiles", "state_dir: /tmp/x\n"},
		{"missing host", `
profiles:
  p:
    username: svc
    password: x
    parent_folder: /a
    archive_folder: /b
`},
		{"relative folder", `
profiles:
  p:
    transport: local
    parent_folder: data
    archive_folder: /b
`},
		{"archive nested under another name", `
profiles:
  p:
    transport: local
    parent_folder: /a
    archive_folder: /a/old
`},
		{"negative threshold", `
profiles:
  p:
    transport: local
    parent_folder: /a
    archive_folder: /b
    move_threshold_days: -1
`},
		{"bad schedule", `
profiles:
  p:
    transport: local
    parent_folder: /a
    archive_folder: /b
    schedule: "every day"
`},
		{"bad log level", `
log:
  level: verbose
profiles:
  p:
    transport: local
    parent_folder: /a
    archive_folder: /b
`},
		{"bad log format", `
log:
  format: xml
profiles:
  p:
    transport: local
    parent_folder: /a
    archive_folder: /b
`},
		{"bad transport", `
profiles:
  p:
    transport: ftp
    parent_folder: /a
    archive_folder: /b
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromString(tt.yaml)
			if !errors.Is(err, domain.ErrConfigInvalid) {
				t.Errorf("LoadFromString() error = %v, want ErrConfigInvalid", err)
			}
		})
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	cfg, err := LoadFromString(sampleConfig)
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}
	if _, err := cfg.GetProfile("missing"); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Errorf("GetProfile() error = %v, want ErrProfileNotFound", err)
	}
}

func TestProfileNames_Sorted(t *testing.T) {
	cfg, err := LoadFromString(sampleConfig)
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}
	names := cfg.ProfileNames()
	if len(names) != 2 || names[0] != "keep-forever" || names[1] != "nightly" {
		t.Errorf("ProfileNames() = %v", names)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
state_dir: ` + dir + `
profiles:
  local:
    transport: local
    parent_folder: /srv/work
    archive_folder: /srv/archive
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StatePath("history.db") != filepath.Join(dir, "history.db") {
		t.Errorf("StatePath() = %q", cfg.StatePath("history.db"))
	}
	if cfg.LoggerConfig().File.Enabled {
		t.Error("file logging should be disabled by default")
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, domain.ErrConfigNotFound) {
		t.Errorf("Load() error = %v, want ErrConfigNotFound", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SFTPSWEEP_STATE_DIR", dir)

	cfg, err := LoadFromString(`
state_dir: /ignored
profiles:
  p:
    transport: local
    parent_folder: /a
    archive_folder: /b
`)
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}
	if cfg.StateDir != dir {
		t.Errorf("StateDir = %q, want %q", cfg.StateDir, dir)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	t.Setenv("SFTPSWEEP_TEST_DIR", "/opt/test")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/keys/id", filepath.Join(home, "keys", "id")},
		{"$SFTPSWEEP_TEST_DIR/state", "/opt/test/state"},
		{"/a/../b", "/b"},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
