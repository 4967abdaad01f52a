package profilestore

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/haivivi/voicegate/pkg/voiceprint"
)

// Blobs is a flat object namespace. Names are forward-slash separated.
// Get returns an error wrapping fs.ErrNotExist for missing objects.
type Blobs interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// Object name layout inside a Blobs namespace.
const (
	profilesDir = "profiles/"
	backupsDir  = "backups/"
	blobExt     = ".json"
)

// BlobStore keeps one JSON object per user on a Blobs backend. Before a
// profile object is replaced, its previous content is written to the
// user's backup object.
type BlobStore struct {
	blobs Blobs
	// mu serializes writers within this process; cross-process writers
	// are not coordinated.
	mu sync.Mutex
}

// NewBlob returns a BlobStore over b.
func NewBlob(b Blobs) *BlobStore {
	return &BlobStore{blobs: b}
}

func (s *BlobStore) Load(ctx context.Context, user string) (*voiceprint.Profile, error) {
	return s.get(ctx, profilesDir, user)
}

func (s *BlobStore) LoadBackup(ctx context.Context, user string) (*voiceprint.Profile, error) {
	return s.get(ctx, backupsDir, user)
}

func (s *BlobStore) get(ctx context.Context, dir, user string) (*voiceprint.Profile, error) {
	if checkUser(user) != nil {
		return nil, notFound(user)
	}
	data, err := s.blobs.Get(ctx, dir+user+blobExt)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(user)
	}
	if err != nil {
		return nil, ioError("get "+dir+user, err)
	}
	var p voiceprint.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, ioError("decode "+dir+user, err)
	}
	return &p, nil
}

func (s *BlobStore) Save(ctx context.Context, user string, p *voiceprint.Profile) error {
	if err := checkUser(user); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return ioError("encode", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	name := profilesDir + user + blobExt
	old, err := s.blobs.Get(ctx, name)
	switch {
	case err == nil:
		if err := s.blobs.Put(ctx, backupsDir+user+blobExt, old); err != nil {
			return ioError("put backup "+user, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return ioError("get "+user, err)
	}
	if err := s.blobs.Put(ctx, name, data); err != nil {
		return ioError("put "+user, err)
	}
	return nil
}

func (s *BlobStore) List(ctx context.Context) ([]string, error) {
	names, err := s.blobs.List(ctx, profilesDir)
	if err != nil {
		return nil, ioError("list", err)
	}
	users := make([]string, 0, len(names))
	for _, n := range names {
		u, ok := strings.CutSuffix(strings.TrimPrefix(n, profilesDir), blobExt)
		if ok && u != "" && !strings.Contains(u, "/") {
			users = append(users, u)
		}
	}
	slices.Sort(users)
	return users, nil
}

func (s *BlobStore) Close() error { return nil }

// LocalBlobs stores objects as files under a root directory.
type LocalBlobs struct {
	root string
}

// NewLocalBlobs creates a LocalBlobs rooted at dir, creating it if needed.
func NewLocalBlobs(dir string) (*LocalBlobs, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &LocalBlobs{root: abs}, nil
}

func (l *LocalBlobs) resolve(name string) string {
	return filepath.Join(l.root, filepath.FromSlash(path.Clean("/"+name)))
}

func (l *LocalBlobs) Get(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(l.resolve(name))
}

// Put writes through a temporary file and rename, so readers never see a
// partial object.
func (l *LocalBlobs) Put(_ context.Context, name string, data []byte) error {
	full := l.resolve(name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	tmp, err := writeTemp(full, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func (l *LocalBlobs) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		if name := filepath.ToSlash(rel); strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

var (
	_ Store = (*BlobStore)(nil)
	_ Blobs = (*LocalBlobs)(nil)
)
