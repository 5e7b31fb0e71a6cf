package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Profile defaults
const (
	DefaultPort                = 22
	DefaultMoveThresholdDays   = 7
	DefaultDeleteThresholdDays = 30
	DefaultSchedule            = "0 2 * * *"
	DefaultConnectTimeout      = 30 * time.Second
	DefaultMaxDepth            = 64
)

// ArchiveFolderName is the reserved name of an archive folder nested
// directly under the working root. The archival sweep never visits it.
const ArchiveFolderName = "Archive"

// TransportType identifies the remote filesystem backend
type TransportType string

const (
	TransportSFTP  TransportType = "sftp"
	TransportLocal TransportType = "local"
)

// IsValid checks if the transport type is a known value
func (t TransportType) IsValid() bool {
	switch t {
	case TransportSFTP, TransportLocal:
		return true
	}
	return false
}

// Profile is one named maintenance job as read from configuration.
// It is never mutated after loading.
type Profile struct {
	// Name is the profile key in the configuration file
	Name string `mapstructure:"-"`

	// Transport selects the backend, sftp unless set
	Transport TransportType `mapstructure:"transport"`

	Host       string `mapstructure:"host"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	KeyFile    string `mapstructure:"key_file"`
	KnownHosts string `mapstructure:"known_hosts"`
	Port       int    `mapstructure:"port"`

	// ParentFolder is the working root subject to archival
	ParentFolder string `mapstructure:"parent_folder"`

	// ArchiveFolder is the archive root subject to purging
	ArchiveFolder string `mapstructure:"archive_folder"`

	MoveThresholdDays   int `mapstructure:"move_threshold_days"`
	DeleteThresholdDays int `mapstructure:"delete_threshold_days"`

	// Schedule is a standard 5-field cron spec used in daemon mode
	Schedule string `mapstructure:"schedule"`

	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	// MaxDepth bounds how deep either sweep descends below its root
	MaxDepth int `mapstructure:"max_depth"`
}

// Validate checks that the profile is usable
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: profile name cannot be empty", ErrConfigInvalid)
	}
	if !p.Transport.IsValid() {
		return fmt.Errorf("%w: profile %s: invalid transport: %s", ErrConfigInvalid, p.Name, p.Transport)
	}
	if p.Transport == TransportSFTP {
		if p.Host == "" {
			return fmt.Errorf("%w: profile %s has no host", ErrConfigInvalid, p.Name)
		}
		if p.Username == "" {
			return fmt.Errorf("%w: profile %s has no username", ErrConfigInvalid, p.Name)
		}
		if p.Password == "" && p.KeyFile == "" {
			return fmt.Errorf("%w: profile %s needs a password or key_file", ErrConfigInvalid, p.Name)
		}
		if p.Port <= 0 || p.Port > 65535 {
			return fmt.Errorf("%w: profile %s has invalid port: %d", ErrConfigInvalid, p.Name, p.Port)
		}
	}
	if p.MoveThresholdDays < 0 || p.DeleteThresholdDays < 0 {
		return fmt.Errorf("%w: profile %s: thresholds cannot be negative", ErrConfigInvalid, p.Name)
	}
	if p.MaxDepth < 0 {
		return fmt.Errorf("%w: profile %s: max_depth cannot be negative", ErrConfigInvalid, p.Name)
	}
	return p.Policy().Validate()
}

// Policy returns the engine input for this profile
func (p Profile) Policy() Policy {
	return Policy{
		WorkingRoot:         p.ParentFolder,
		ArchiveRoot:         p.ArchiveFolder,
		MoveThresholdDays:   p.MoveThresholdDays,
		DeleteThresholdDays: p.DeleteThresholdDays,
		MaxDepth:            p.MaxDepth,
	}
}

// Policy is the immutable per-run input of the lifecycle engine
type Policy struct {
	WorkingRoot         string
	ArchiveRoot         string
	MoveThresholdDays   int
	DeleteThresholdDays int
	MaxDepth            int
}

// MoveBefore returns the archival threshold relative to now
func (p Policy) MoveBefore(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.MoveThresholdDays)
}

// DeleteBefore returns the purge threshold relative to now
func (p Policy) DeleteBefore(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.DeleteThresholdDays)
}

// Validate checks that both roots are absolute and do not overlap.
// The only accepted nesting is an archive root that is the direct
// child of the working root named ArchiveFolderName, which the
// archival sweep skips.
func (p Policy) Validate() error {
	if p.WorkingRoot == "" || p.ArchiveRoot == "" {
		return fmt.Errorf("%w: parent_folder and archive_folder are required", ErrConfigInvalid)
	}
	if !path.IsAbs(p.WorkingRoot) || !path.IsAbs(p.ArchiveRoot) {
		return fmt.Errorf("%w: parent_folder and archive_folder must be absolute", ErrConfigInvalid)
	}

	work := path.Clean(p.WorkingRoot)
	archive := path.Clean(p.ArchiveRoot)
	if work == archive {
		return fmt.Errorf("%w: parent_folder and archive_folder must differ", ErrConfigInvalid)
	}
	if isUnder(work, archive) {
		return fmt.Errorf("%w: parent_folder %s is inside archive_folder %s", ErrConfigInvalid, work, archive)
	}
	if isUnder(archive, work) {
		if path.Dir(archive) == work && strings.EqualFold(path.Base(archive), ArchiveFolderName) {
			return nil
		}
		return fmt.Errorf("%w: archive_folder %s is inside parent_folder %s", ErrConfigInvalid, archive, work)
	}
	return nil
}

// isUnder reports whether p is a strict descendant of root
func isUnder(p, root string) bool {
	if root == "/" {
		return p != "/"
	}
	return strings.HasPrefix(p, root+"/")
}
