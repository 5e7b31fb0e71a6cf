package lifecycle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/Ning0612/sftpsweep/internal/domain"
	"github.com/Ning0612/sftpsweep/internal/logger"
)

// fakeFile is one file in the fake tree
type fakeFile struct {
	data    []byte
	modTime time.Time
}

// fakeFS is an in-memory adapter that records every call and can be
// told to fail specific operations on specific paths
type fakeFS struct {
	files map[string]fakeFile
	dirs  map[string]bool
	links map[string]bool
	calls []string

	// dotEntries makes List report "." and ".." first, like raw SFTP servers
	dotEntries bool

	failList   map[string]error
	failRead   map[string]error
	failWrite  map[string]error
	failDelete map[string]error
	failMkdir  map[string]error
	failExists map[string]error

	// afterList runs after a successful List of the given folder
	afterList func(folder string)
	// beforeDelete runs before a Delete takes effect
	beforeDelete func(p string)
}

func newFakeFS() *fakeFS {
	return &fakeFS{
		files:      map[string]fakeFile{},
		dirs:       map[string]bool{"/": true},
		links:      map[string]bool{},
		failList:   map[string]error{},
		failRead:   map[string]error{},
		failWrite:  map[string]error{},
		failDelete: map[string]error{},
		failMkdir:  map[string]error{},
		failExists: map[string]error{},
	}
}

func (f *fakeFS) addDir(p string) {
	for p != "/" && p != "." {
		f.dirs[p] = true
		p = path.Dir(p)
	}
}

func (f *fakeFS) addFile(p, content string, modTime time.Time) {
	f.addDir(path.Dir(p))
	f.files[p] = fakeFile{data: []byte(content), modTime: modTime}
}

// addSymlink adds an entry that lists as a symbolic link
func (f *fakeFS) addSymlink(p string, modTime time.Time) {
	f.addFile(p, "target", modTime)
	f.links[p] = true
}

func (f *fakeFS) hasFile(p string) bool {
	_, ok := f.files[p]
	return ok
}

func (f *fakeFS) content(p string) string {
	return string(f.files[p].data)
}

// removeTree drops a directory and everything under it
func (f *fakeFS) removeTree(p string) {
	for d := range f.dirs {
		if d == p || strings.HasPrefix(d, p+"/") {
			delete(f.dirs, d)
		}
	}
	for name := range f.files {
		if strings.HasPrefix(name, p+"/") {
			delete(f.files, name)
		}
	}
}

func (f *fakeFS) count(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// countExact counts recorded calls equal to call
func (f *fakeFS) countExact(call string) int {
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeFS) List(ctx context.Context, p string) ([]domain.FileInfo, error) {
	f.calls = append(f.calls, "list "+p)
	if err, ok := f.failList[p]; ok {
		return nil, err
	}
	if !f.dirs[p] {
		return nil, domain.ErrNotFound
	}

	var result []domain.FileInfo
	if f.dotEntries {
		result = append(result,
			domain.FileInfo{Name: ".", Path: p, Type: domain.FileTypeDirectory},
			domain.FileInfo{Name: "..", Path: path.Dir(p), Type: domain.FileTypeDirectory},
		)
	}

	var children []domain.FileInfo
	for d := range f.dirs {
		if d != p && path.Dir(d) == p {
			children = append(children, domain.FileInfo{Name: path.Base(d), Path: d, Type: domain.FileTypeDirectory})
		}
	}
	for name, file := range f.files {
		if path.Dir(name) == p {
			fileType := domain.FileTypeRegular
			if f.links[name] {
				fileType = domain.FileTypeSymlink
			}
			children = append(children, domain.FileInfo{
				Name:    path.Base(name),
				Path:    name,
				Type:    fileType,
				Size:    int64(len(file.data)),
				ModTime: file.modTime,
			})
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	result = append(result, children...)

	if f.afterList != nil {
		f.afterList(p)
	}
	return result, nil
}

func (f *fakeFS) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	f.calls = append(f.calls, "read "+p)
	if err, ok := f.failRead[p]; ok {
		return nil, err
	}
	file, ok := f.files[p]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(file.data)), nil
}

func (f *fakeFS) Write(ctx context.Context, p string, r io.Reader) error {
	f.calls = append(f.calls, "write "+p)
	if err, ok := f.failWrite[p]; ok {
		return err
	}
	if !f.dirs[path.Dir(p)] {
		return domain.ErrNotFound
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.files[p] = fakeFile{data: data, modTime: fixedNow}
	return nil
}

func (f *fakeFS) Delete(ctx context.Context, p string) error {
	f.calls = append(f.calls, "delete "+p)
	if f.beforeDelete != nil {
		f.beforeDelete(p)
	}
	if err, ok := f.failDelete[p]; ok {
		return err
	}
	if _, ok := f.files[p]; !ok {
		return domain.ErrNotFound
	}
	delete(f.files, p)
	return nil
}

func (f *fakeFS) Mkdir(ctx context.Context, p string) error {
	f.calls = append(f.calls, "mkdir "+p)
	if err, ok := f.failMkdir[p]; ok {
		return err
	}
	f.addDir(p)
	return nil
}

func (f *fakeFS) Exists(ctx context.Context, p string) (bool, error) {
	f.calls = append(f.calls, "exists "+p)
	if err, ok := f.failExists[p]; ok {
		return false, err
	}
	_, isFile := f.files[p]
	return isFile || f.dirs[p], nil
}

func (f *fakeFS) Close() error {
	return nil
}

// bufferLogger returns a debug-level text logger writing into buf
func bufferLogger(buf *bytes.Buffer) logger.Logger {
	log, err := logger.NewSlogLogger(logger.Config{
		Level:   logger.LevelDebug,
		Format:  logger.FormatText,
		Outputs: []logger.OutputConfig{{Type: logger.OutputStdout, Writer: buf}},
	})
	if err != nil {
		panic(fmt.Sprintf("create logger: %v", err))
	}
	return log
}

// fixedNow is the clock used throughout the lifecycle tests
var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return fixedNow.AddDate(0, 0, -n)
}
