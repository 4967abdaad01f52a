package profilestore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/haivivi/voicegate/pkg/voiceprint"
)

func makeProfile(t *testing.T, user string, pitch float64) *voiceprint.Profile {
	t.Helper()
	fv := func(f0 float64) *voiceprint.FeatureVector {
		return &voiceprint.FeatureVector{
			F0Mean:               f0,
			VoicingRatio:         0.4,
			MFCCMean:             []float64{-200, 40, 5, 1},
			MFCCStd:              []float64{20, 8, 3, 2},
			MFCCDelta:            []float64{0.1, 0, -0.1, 0.2},
			ChromaMean:           []float64{0.1, 0.9},
			TonnetzMean:          []float64{0.01, -0.02},
			SpectralCentroidMean: 1500,
			Tempo:                f0 / 2,
		}
	}
	p, err := voiceprint.Aggregate(user, []*voiceprint.FeatureVector{fv(pitch), fv(pitch + 10)})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	p.CreatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.Transcripts = []string{"hello " + user}
	return p
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stores returns one fresh instance of every Store implementation.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFile(filepath.Join(dir, "file", "voice_profiles.json"), WithFileLogger(quiet()))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	bdb, err := NewBadger(BadgerOptions{InMemory: true, Logger: quiet()})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	local, err := NewLocalBlobs(filepath.Join(dir, "blobs"))
	if err != nil {
		t.Fatalf("NewLocalBlobs: %v", err)
	}

	all := map[string]Store{
		"memory": NewMemory(),
		"file":   file,
		"badger": bdb,
		"local":  NewBlob(local),
		"s3":     NewBlob(NewS3Blobs(newMockS3(), "profiles-bucket", "voicegate")),
	}
	t.Cleanup(func() {
		for _, s := range all {
			s.Close()
		}
	})
	return all
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			want := makeProfile(t, "alice", 150)
			if err := s.Save(ctx, "alice", want); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := s.Load(ctx, "alice")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !got.CreatedAt.Equal(want.CreatedAt) {
				t.Errorf("created = %v, want %v", got.CreatedAt, want.CreatedAt)
			}
			got.CreatedAt = want.CreatedAt
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Load = %+v\nwant %+v", got, want)
			}
			if err := got.CheckIntegrity(); err != nil {
				t.Errorf("CheckIntegrity: %v", err)
			}
		})
	}
}

func TestStoreNotFound(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Load(ctx, "nobody"); !errors.Is(err, ErrProfileNotFound) {
				t.Errorf("Load: err = %v, want ErrProfileNotFound", err)
			}
			if _, err := s.LoadBackup(ctx, "nobody"); !errors.Is(err, ErrProfileNotFound) {
				t.Errorf("LoadBackup: err = %v, want ErrProfileNotFound", err)
			}
			users, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(users) != 0 {
				t.Errorf("List = %v, want empty", users)
			}
		})
	}
}

func TestStoreBackup(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			first := makeProfile(t, "alice", 150)
			second := makeProfile(t, "alice", 155)

			if err := s.Save(ctx, "alice", first); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if _, err := s.LoadBackup(ctx, "alice"); !errors.Is(err, ErrProfileNotFound) {
				t.Errorf("backup after first save: err = %v", err)
			}
			if err := s.Save(ctx, "alice", second); err != nil {
				t.Fatalf("Save: %v", err)
			}

			backup, err := s.LoadBackup(ctx, "alice")
			if err != nil {
				t.Fatalf("LoadBackup: %v", err)
			}
			if backup.Hash != first.Hash {
				t.Errorf("backup hash = %s, want first enrollment %s", backup.Hash, first.Hash)
			}
			current, err := s.Load(ctx, "alice")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if current.Hash != second.Hash {
				t.Errorf("current hash = %s, want second enrollment %s", current.Hash, second.Hash)
			}
		})
	}
}

func TestStoreList(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for i, u := range []string{"carol", "alice", "bob"} {
				if err := s.Save(ctx, u, makeProfile(t, u, 120+float64(i)*20)); err != nil {
					t.Fatalf("Save %s: %v", u, err)
				}
			}
			// A second save of alice must not duplicate her.
			if err := s.Save(ctx, "alice", makeProfile(t, "alice", 130)); err != nil {
				t.Fatalf("Save: %v", err)
			}
			users, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if want := []string{"alice", "bob", "carol"}; !slices.Equal(users, want) {
				t.Errorf("List = %v, want %v", users, want)
			}
		})
	}
}

func TestStoreInvalidUser(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, u := range []string{"", "../etc", "a/b", ".."} {
				if err := s.Save(ctx, u, makeProfile(t, "x", 150)); !errors.Is(err, ErrInvalidUser) {
					t.Errorf("Save(%q): err = %v, want ErrInvalidUser", u, err)
				}
			}
		})
	}
}

func TestStoreConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			users := []string{"u0", "u1", "u2", "u3", "u4", "u5", "u6", "u7"}
			var wg sync.WaitGroup
			for i, u := range users {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := s.Save(ctx, u, makeProfile(t, u, 100+float64(i))); err != nil {
						t.Errorf("Save %s: %v", u, err)
					}
					if _, err := s.List(ctx); err != nil {
						t.Errorf("List: %v", err)
					}
				}()
			}
			wg.Wait()
			got, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if !slices.Equal(got, users) {
				t.Errorf("List = %v, want %v", got, users)
			}
		})
	}
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	p := makeProfile(t, "alice", 150)
	if err := s.Save(ctx, "alice", p); err != nil {
		t.Fatal(err)
	}
	p.Vectors[voiceprint.FeatureMFCCMean].Mean[0] = 999
	got, _ := s.Load(ctx, "alice")
	if got.Vectors[voiceprint.FeatureMFCCMean].Mean[0] == 999 {
		t.Fatal("stored profile aliased caller's slice")
	}
}

func TestFileStoreLayout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "voice_profiles.json")
	s, err := NewFile(path, WithFileLogger(quiet()))
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range []string{"bob", "alice"} {
		if err := s.Save(ctx, u, makeProfile(t, u, 150)); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if a, b := strings.Index(text, `"alice"`), strings.Index(text, `"bob"`); a < 0 || b < 0 || a > b {
		t.Errorf("users not in sorted order:\n%s", text)
	}
	for _, key := range []string{`"scalar_features"`, `"vector_features"`, `"profile_hash"`, `"created_timestamp"`, `"sample_count": 2`} {
		if !strings.Contains(text, key) {
			t.Errorf("document missing %s", key)
		}
	}

	// The backup holds the document as it was before the last save.
	backup, err := os.ReadFile(s.BackupPath())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(backup), `"bob"`) || strings.Contains(string(backup), `"alice"`) {
		t.Errorf("backup should hold only bob:\n%s", backup)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

func TestFileStoreCorruptDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "voice_profiles.json")
	s, err := NewFile(path, WithFileLogger(quiet()))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "alice", makeProfile(t, "alice", 150)); err != nil {
		t.Fatal(err)
	}
	good, _ := os.ReadFile(path)

	// Drop the closing braces and add a trailing comma, as a hand edit
	// might.
	damaged := strings.TrimRight(string(good), "}\n ") + ",\n"
	if err := os.WriteFile(path, []byte(damaged), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Load(ctx, "alice"); !errors.Is(err, ErrStoreIO) {
		t.Fatalf("Load damaged: err = %v, want ErrStoreIO", err)
	}
	if err := s.Save(ctx, "bob", makeProfile(t, "bob", 120)); !errors.Is(err, ErrStoreIO) {
		t.Fatalf("Save over damaged document: err = %v, want ErrStoreIO", err)
	}
	if data, _ := os.ReadFile(path); string(data) != damaged {
		t.Fatal("failed save modified the document")
	}

	repaired, err := s.Repair(ctx)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if !repaired {
		t.Fatal("Repair reported no change")
	}
	p, err := s.Load(ctx, "alice")
	if err != nil {
		t.Fatalf("Load after repair: %v", err)
	}
	if err := p.CheckIntegrity(); err != nil {
		t.Errorf("repaired profile: %v", err)
	}
	if _, err := os.Stat(path + ".corrupt"); err != nil {
		t.Errorf("damaged copy not kept: %v", err)
	}

	if repaired, err := s.Repair(ctx); err != nil || repaired {
		t.Errorf("second Repair = %v, %v; want false, nil", repaired, err)
	}
}

func TestBlobStoreLayout(t *testing.T) {
	ctx := context.Background()
	mock := newMockS3()
	s := NewBlob(NewS3Blobs(mock, "bucket", "vg"))
	p := makeProfile(t, "alice", 150)
	if err := s.Save(ctx, "alice", p); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "alice", p); err != nil {
		t.Fatal(err)
	}
	keys := mock.keys()
	if want := []string{"vg/backups/alice.json", "vg/profiles/alice.json"}; !slices.Equal(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}
}

func TestS3Errors(t *testing.T) {
	ctx := context.Background()
	mock := newMockS3()
	s := NewBlob(NewS3Blobs(mock, "bucket", ""))

	mock.getErr = &apiError{code: "AccessDenied", msg: "denied"}
	if _, err := s.Load(ctx, "alice"); !errors.Is(err, ErrStoreIO) {
		t.Errorf("Load: err = %v, want ErrStoreIO", err)
	}
	if err := s.Save(ctx, "alice", makeProfile(t, "alice", 150)); !errors.Is(err, ErrStoreIO) {
		t.Errorf("Save: err = %v, want ErrStoreIO", err)
	}

	mock.getErr = nil
	mock.putErr = errors.New("network down")
	if err := s.Save(ctx, "alice", makeProfile(t, "alice", 150)); !errors.Is(err, ErrStoreIO) {
		t.Errorf("Save: err = %v, want ErrStoreIO", err)
	}
	if len(mock.keys()) != 0 {
		t.Errorf("failed save wrote %v", mock.keys())
	}
}

func TestS3ListPaginates(t *testing.T) {
	ctx := context.Background()
	mock := newMockS3()
	mock.pageSize = 2
	s := NewBlob(NewS3Blobs(mock, "bucket", ""))
	want := []string{"a", "b", "c", "d", "e"}
	for _, u := range want {
		if err := s.Save(ctx, u, makeProfile(t, u, 150)); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, want) {
		t.Errorf("List = %v, want %v", got, want)
	}
}

// ---------------------------------------------------------------------------
// mock S3 client
// ---------------------------------------------------------------------------

// apiError implements smithy.APIError for test assertions.
type apiError struct {
	code string
	msg  string
}

func (e *apiError) Error() string                 { return e.msg }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.msg }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

// mockS3 is a thread-safe in-memory S3 backend.
type mockS3 struct {
	mu       sync.Mutex
	objects  map[string][]byte
	pageSize int

	getErr error
	putErr error
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte), pageSize: 1000}
}

func (m *mockS3) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, &apiError{code: "NoSuchKey", msg: "no such key"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var matched []string
	for _, k := range m.keys() {
		if strings.HasPrefix(k, *in.Prefix) {
			matched = append(matched, k)
		}
	}
	start := 0
	if in.ContinuationToken != nil {
		start = slices.Index(matched, *in.ContinuationToken)
	}
	end := min(start+m.pageSize, len(matched))
	out := &s3.ListObjectsV2Output{}
	for _, k := range matched[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: &k})
	}
	if end < len(matched) {
		next := matched[end]
		out.IsTruncated = ptr(true)
		out.NextContinuationToken = &next
	}
	return out, nil
}

func ptr[T any](v T) *T { return &v }
