package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ning0612/sftpsweep/internal/adapter"
	"github.com/Ning0612/sftpsweep/internal/adapter/local"
	sftpadapter "github.com/Ning0612/sftpsweep/internal/adapter/sftp"
	"github.com/Ning0612/sftpsweep/internal/domain"
	"github.com/Ning0612/sftpsweep/internal/logger"
)

// SessionOpener opens a remote filesystem session for one run
type SessionOpener func(ctx context.Context, profile domain.Profile, log logger.Logger) (adapter.Adapter, error)

// OpenSession connects to the profile's transport.
// Every failure is wrapped with domain.ErrSessionFailed.
func OpenSession(ctx context.Context, profile domain.Profile, log logger.Logger) (adapter.Adapter, error) {
	switch profile.Transport {
	case domain.TransportLocal:
		return local.NewOS(), nil

	case domain.TransportSFTP:
		opts := sftpadapter.OptionsFromProfile(profile)
		opts.OnInsecureHostKey = func(host string) {
			log.Warn("host key not verified, set known_hosts to pin it", "host", host)
		}
		a, err := sftpadapter.Dial(ctx, opts)
		if err != nil {
			return nil, sessionError(fmt.Errorf("%s@%s: %w", profile.Username, profile.Host, err))
		}
		return a, nil

	default:
		return nil, fmt.Errorf("%w: unsupported transport: %s", domain.ErrSessionFailed, profile.Transport)
	}
}

func sessionError(err error) error {
	if errors.Is(err, domain.ErrSessionFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrSessionFailed, err)
}
