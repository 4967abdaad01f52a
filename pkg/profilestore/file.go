package profilestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/kaptinlin/jsonrepair"

	"github.com/haivivi/voicegate/pkg/voiceprint"
)

// BackupSuffix is appended to the document path to name the backup.
const BackupSuffix = ".backup"

// document is the on-disk layout: user id → profile. encoding/json writes
// map keys in sorted order, so the file is stable across saves.
type document map[string]*voiceprint.Profile

// FileStore keeps every profile in a single JSON document. Each Save
// rewrites the document through a temporary file and rename, after
// copying the previous document to the backup path.
type FileStore struct {
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithFileLogger sets the logger used for repair and save diagnostics.
func WithFileLogger(l *slog.Logger) FileOption {
	return func(s *FileStore) { s.logger = l }
}

// NewFile returns a FileStore for the document at path. The parent
// directory is created if needed; the document itself is created on the
// first Save.
func NewFile(path string, opts ...FileOption) (*FileStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ioError("resolve path", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, ioError("create directory", err)
	}
	s := &FileStore{path: abs, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Path returns the document path.
func (s *FileStore) Path() string { return s.path }

// BackupPath returns the path of the backup document.
func (s *FileStore) BackupPath() string { return s.path + BackupSuffix }

func (s *FileStore) Load(_ context.Context, user string) (*voiceprint.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, err := readDocument(s.path)
	if err != nil {
		return nil, err
	}
	p, ok := doc[user]
	if !ok || p == nil {
		return nil, notFound(user)
	}
	return p, nil
}

func (s *FileStore) Save(_ context.Context, user string, p *voiceprint.Profile) error {
	if err := checkUser(user); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := readDocument(s.path)
	if err != nil {
		return err
	}
	doc[user] = p
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return ioError("encode", err)
	}

	tmp, err := writeTemp(s.path, data)
	if err != nil {
		return err
	}
	if err := s.backup(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return ioError("replace document", err)
	}
	s.logger.Debug("profilestore: saved", "user", user, "path", s.path, "users", len(doc))
	return nil
}

// backup copies the current document, if any, to the backup path.
func (s *FileStore) backup() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return ioError("read document", err)
	}
	tmp, err := writeTemp(s.BackupPath(), data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, s.BackupPath()); err != nil {
		os.Remove(tmp)
		return ioError("replace backup", err)
	}
	return nil
}

func (s *FileStore) List(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, err := readDocument(s.path)
	if err != nil {
		return nil, err
	}
	return doc.users(), nil
}

func (s *FileStore) LoadBackup(_ context.Context, user string) (*voiceprint.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, err := readDocument(s.BackupPath())
	if err != nil {
		return nil, err
	}
	p, ok := doc[user]
	if !ok || p == nil {
		return nil, notFound(user)
	}
	return p, nil
}

// Repair rewrites a document that no longer parses, e.g. after a manual
// edit, using a lenient JSON repair. The damaged file is kept next to the
// document with a ".corrupt" suffix. It reports whether a repair was
// needed.
func (s *FileStore) Repair(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, ioError("read document", err)
	}
	var doc document
	if json.Unmarshal(data, &doc) == nil {
		return false, nil
	}

	fixed, err := jsonrepair.JSONRepair(string(data))
	if err != nil {
		return false, ioError("repair document", err)
	}
	if err := json.Unmarshal([]byte(fixed), &doc); err != nil {
		return false, ioError("repair document", err)
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return false, ioError("encode", err)
	}
	if err := os.WriteFile(s.path+".corrupt", data, 0o644); err != nil {
		return false, ioError("keep damaged document", err)
	}
	tmp, err := writeTemp(s.path, out)
	if err != nil {
		return false, err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return false, ioError("replace document", err)
	}
	s.logger.Warn("profilestore: repaired document", "path", s.path, "users", len(doc))
	return true, nil
}

func (s *FileStore) Close() error { return nil }

func (d document) users() []string {
	users := make([]string, 0, len(d))
	for u, p := range d {
		if p != nil {
			users = append(users, u)
		}
	}
	slices.Sort(users)
	return users
}

// readDocument loads the document at path; a missing file is an empty
// document.
func readDocument(path string) (document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return document{}, nil
	}
	if err != nil {
		return nil, ioError("read document", err)
	}
	doc := document{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, ioError(fmt.Sprintf("decode %s", filepath.Base(path)), err)
	}
	return doc, nil
}

// writeTemp writes data to a new temporary file next to path and syncs it.
func writeTemp(path string, data []byte) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", ioError("create temp file", err)
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", ioError("write temp file", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", ioError("sync temp file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", ioError("close temp file", err)
	}
	return name, nil
}

var _ Store = (*FileStore)(nil)
