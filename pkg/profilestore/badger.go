package profilestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/voicegate/pkg/voiceprint"
)

// Key prefixes in the Badger keyspace.
const (
	profilePrefix = "profile:"
	backupPrefix  = "backup:"
)

// BadgerStore keeps profiles in BadgerDB as msgpack values under
// "profile:<user>", with the replaced version under "backup:<user>".
// Each Save runs in one transaction.
type BadgerStore struct {
	db *badger.DB
}

// BadgerOptions configures a BadgerStore.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files. Required unless
	// InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool

	// Logger receives badger warnings and errors. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// NewBadger opens a BadgerStore.
func NewBadger(opts BadgerOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("profilestore: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{logger})
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, ioError("open badger", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Load(_ context.Context, user string) (*voiceprint.Profile, error) {
	return b.get(profilePrefix, user)
}

func (b *BadgerStore) LoadBackup(_ context.Context, user string) (*voiceprint.Profile, error) {
	return b.get(backupPrefix, user)
}

func (b *BadgerStore) get(prefix, user string) (*voiceprint.Profile, error) {
	var p *voiceprint.Profile
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefix + user))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			p, err = decodeProfile(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFound(user)
	}
	if err != nil {
		return nil, ioError("get "+prefix+user, err)
	}
	return p, nil
}

func (b *BadgerStore) Save(_ context.Context, user string, p *voiceprint.Profile) error {
	if err := checkUser(user); err != nil {
		return err
	}
	data, err := encodeProfile(p)
	if err != nil {
		return ioError("encode", err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(profilePrefix + user))
		switch {
		case err == nil:
			old, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(backupPrefix+user), old); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set([]byte(profilePrefix+user), data)
	})
	if err != nil {
		return ioError("save "+user, err)
	}
	return nil
}

func (b *BadgerStore) List(context.Context) ([]string, error) {
	var users []string
	prefix := []byte(profilePrefix)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			users = append(users, strings.TrimPrefix(string(it.Item().Key()), profilePrefix))
		}
		return nil
	})
	if err != nil {
		return nil, ioError("list", err)
	}
	return users, nil
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}

func encodeProfile(p *voiceprint.Profile) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeProfile(data []byte) (*voiceprint.Profile, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	var p voiceprint.Profile
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

// badgerLogger routes badger's printf-style logging to slog, dropping
// info and debug chatter.
type badgerLogger struct {
	l *slog.Logger
}

func (b badgerLogger) Errorf(f string, v ...any) {
	b.l.Error("profilestore: badger: " + strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (b badgerLogger) Warningf(f string, v ...any) {
	b.l.Warn("profilestore: badger: " + strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (badgerLogger) Infof(string, ...any)  {}
func (badgerLogger) Debugf(string, ...any) {}

var _ Store = (*BadgerStore)(nil)
