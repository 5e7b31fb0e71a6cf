package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/Ning0612/sftpsweep/internal/domain"
)

// Options configures a single SFTP session
type Options struct {
	Host       string
	Port       int
	Username   string
	Password   string
	KeyFile    string
	KnownHosts string
	Timeout    time.Duration

	// OnInsecureHostKey is called when no known_hosts file is configured
	// and the server key is accepted without verification
	OnInsecureHostKey func(host string)
}

// OptionsFromProfile builds session options from a maintenance profile
func OptionsFromProfile(p domain.Profile) Options {
	return Options{
		Host:       p.Host,
		Port:       p.Port,
		Username:   p.Username,
		Password:   p.Password,
		KeyFile:    p.KeyFile,
		KnownHosts: p.KnownHosts,
		Timeout:    p.ConnectTimeout,
	}
}

// Adapter implements the adapter.Adapter interface over one SFTP session
type Adapter struct {
	conn   io.Closer
	client *sftp.Client
}

// newAdapter wraps an open sftp client; conn is closed after it
func newAdapter(client *sftp.Client, conn io.Closer) *Adapter {
	return &Adapter{conn: conn, client: client}
}

// Dial connects, authenticates and opens the SFTP subsystem.
// Any failure closes whatever was already opened.
func Dial(ctx context.Context, opts Options) (*Adapter, error) {
	cfg, err := clientConfig(opts)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	dialer := &net.Dialer{Timeout: opts.Timeout}
	tcp, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", domain.ErrNetworkError, addr, err)
	}

	// The handshake has no context; bound it with a deadline instead
	if opts.Timeout > 0 {
		tcp.SetDeadline(time.Now().Add(opts.Timeout))
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(tcp, addr, cfg)
	if err != nil {
		tcp.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	tcp.SetDeadline(time.Time{})

	conn := ssh.NewClient(sshConn, chans, reqs)
	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open sftp subsystem on %s: %w", addr, err)
	}

	return newAdapter(client, conn), nil
}

// clientConfig builds the ssh client configuration
func clientConfig(opts Options) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if opts.KeyFile != "" {
		key, err := os.ReadFile(opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		var signer ssh.Signer
		if opts.Password != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(opts.Password))
		} else {
			signer, err = ssh.ParsePrivateKey(key)
		}
		if err != nil {
			return nil, fmt.Errorf("parse key file: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if opts.Password != "" {
		auth = append(auth, ssh.Password(opts.Password))
	}

	hostKey, err := hostKeyCallback(opts)
	if err != nil {
		return nil, err
	}

	return &ssh.ClientConfig{
		User:            opts.Username,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         opts.Timeout,
	}, nil
}

func hostKeyCallback(opts Options) (ssh.HostKeyCallback, error) {
	if opts.KnownHosts != "" {
		cb, err := knownhosts.New(opts.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("load known_hosts: %w", err)
		}
		return cb, nil
	}
	if opts.OnInsecureHostKey != nil {
		opts.OnInsecureHostKey(opts.Host)
	}
	return ssh.InsecureIgnoreHostKey(), nil
}

// List returns the immediate entries of a directory
func (a *Adapter) List(ctx context.Context, p string) ([]domain.FileInfo, error) {
	p = path.Clean(p)
	infos, err := a.client.ReadDir(p)
	if err != nil {
		return nil, mapError(err)
	}

	result := make([]domain.FileInfo, 0, len(infos))
	for _, info := range infos {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		result = append(result, fileInfoFromSFTP(path.Join(p, info.Name()), info))
	}
	return result, nil
}

// Read opens a remote file for reading
func (a *Adapter) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	file, err := a.client.Open(path.Clean(p))
	if err != nil {
		return nil, mapError(err)
	}
	return file, nil
}

// Write creates or overwrites a remote file.
// A failed close is reported since the server may only then reject the data.
func (a *Adapter) Write(ctx context.Context, p string, r io.Reader) error {
	file, err := a.client.OpenFile(path.Clean(p), os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return mapError(err)
	}

	_, copyErr := io.Copy(file, r)
	closeErr := file.Close()
	if copyErr != nil {
		return mapError(copyErr)
	}
	return mapError(closeErr)
}

// Delete removes a remote file
func (a *Adapter) Delete(ctx context.Context, p string) error {
	return mapError(a.client.Remove(path.Clean(p)))
}

// Mkdir creates a directory and any necessary parents
func (a *Adapter) Mkdir(ctx context.Context, p string) error {
	return mapError(a.client.MkdirAll(path.Clean(p)))
}

// Exists checks if a path exists
func (a *Adapter) Exists(ctx context.Context, p string) (bool, error) {
	_, err := a.client.Stat(path.Clean(p))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, mapError(err)
}

// Close ends the SFTP session and the underlying SSH connection
func (a *Adapter) Close() error {
	var lastErr error
	if err := a.client.Close(); err != nil {
		lastErr = err
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			lastErr = err
		}
	}
	return lastErr
}

func fileInfoFromSFTP(p string, info os.FileInfo) domain.FileInfo {
	fileType := domain.FileTypeRegular
	if info.IsDir() {
		fileType = domain.FileTypeDirectory
	} else if info.Mode()&os.ModeSymlink != 0 {
		fileType = domain.FileTypeSymlink
	}

	return domain.FileInfo{
		Name:    info.Name(),
		Path:    p,
		Type:    fileType,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

// mapError converts sftp status errors to domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return domain.ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return domain.ErrPermissionDenied
	}

	var status *sftp.StatusError
	if errors.As(err, &status) {
		if status.FxCode() == sftp.ErrSSHFxNoSuchFile {
			return domain.ErrNotFound
		}
		if status.FxCode() == sftp.ErrSSHFxPermissionDenied {
			return domain.ErrPermissionDenied
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, sftp.ErrSSHFxConnectionLost) {
		return fmt.Errorf("%w: %v", domain.ErrNetworkError, err)
	}
	return err
}
