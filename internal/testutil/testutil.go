package testutil

import (
	"math/rand"
	"path"
	"testing"
	"time"

	"github.com/spf13/afero"
)

// MemTree is an in-memory remote tree for tests
type MemTree struct {
	t  *testing.T
	Fs afero.Fs
}

// NewMemTree creates an empty in-memory tree
func NewMemTree(t *testing.T) *MemTree {
	t.Helper()
	return &MemTree{t: t, Fs: afero.NewMemMapFs()}
}

// Mkdir creates a directory and its parents
func (m *MemTree) Mkdir(p string) {
	m.t.Helper()
	if err := m.Fs.MkdirAll(p, 0755); err != nil {
		m.t.Fatalf("failed to create dir %s: %v", p, err)
	}
}

// WriteFile creates a file with the given content and modification time
func (m *MemTree) WriteFile(p, content string, modTime time.Time) {
	m.t.Helper()
	m.Mkdir(path.Dir(p))
	if err := afero.WriteFile(m.Fs, p, []byte(content), 0644); err != nil {
		m.t.Fatalf("failed to create test file %s: %v", p, err)
	}
	if err := m.Fs.Chtimes(p, modTime, modTime); err != nil {
		m.t.Fatalf("failed to set mtime on %s: %v", p, err)
	}
}

// Exists reports whether p exists
func (m *MemTree) Exists(p string) bool {
	m.t.Helper()
	ok, err := afero.Exists(m.Fs, p)
	if err != nil {
		m.t.Fatalf("failed to stat %s: %v", p, err)
	}
	return ok
}

// ReadFile returns the content of p
func (m *MemTree) ReadFile(p string) string {
	m.t.Helper()
	data, err := afero.ReadFile(m.Fs, p)
	if err != nil {
		m.t.Fatalf("failed to read %s: %v", p, err)
	}
	return string(data)
}

// AssertExists fails the test when p is missing
func (m *MemTree) AssertExists(p string) {
	m.t.Helper()
	if !m.Exists(p) {
		m.t.Errorf("expected %s to exist", p)
	}
}

// AssertMissing fails the test when p exists
func (m *MemTree) AssertMissing(p string) {
	m.t.Helper()
	if m.Exists(p) {
		m.t.Errorf("expected %s to be absent", p)
	}
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if condition() {
			return true
		}

		if time.Now().After(deadline) {
			return false
		}

		<-ticker.C
	}
}

// RandomString generates a random string of the given length
func RandomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
