// Package storage provides the persistent store for ledger entries: a single
// newline-delimited text file, written through one append handle and guarded
// by a file lock for safe access from concurrent processes.
package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const (
	// DefaultFileName is the store file inside the dedupe directory.
	DefaultFileName    = "data.txt"
	defaultLockTimeout = 5 * time.Second
	lockRetryDelay     = 10 * time.Millisecond
)

// Store appends normalized entries to a text file. The append handle is held
// for the Store's lifetime; every write is flushed to disk before returning.
type Store struct {
	dir         string
	fileName    string
	path        string
	lockPath    string
	lockTimeout time.Duration
	logger      *zap.Logger

	file *os.File
}

// Option configures a Store.
type Option func(*Store)

// WithFileName sets the store file name inside the directory.
func WithFileName(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.fileName = name
		}
	}
}

// WithLockTimeout sets a custom lock timeout duration. The default is 5 seconds.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithLogger sets the logger for lock and write diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open creates a Store for the given directory, creating the store file if it
// does not exist yet.
func Open(dir string, opts ...Option) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("dedupe directory does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dedupe path is not a directory: %s", dir)
	}

	s := &Store{
		dir:         dir,
		fileName:    DefaultFileName,
		lockPath:    filepath.Join(dir, "lock"),
		lockTimeout: defaultLockTimeout,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.path = filepath.Join(dir, s.fileName)

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.fileName, err)
	}
	s.file = f
	return s, nil
}

// Dir returns the directory the store lives in.
func (s *Store) Dir() string { return s.dir }

// Path returns the store file path.
func (s *Store) Path() string { return s.path }

// Close releases the append handle.
func (s *Store) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Append writes entry as one line and syncs it to disk under an exclusive lock.
// An entry containing a line break is refused.
func (s *Store) Append(entry string) error {
	if s.file == nil {
		return fmt.Errorf("store is closed")
	}
	if strings.ContainsAny(entry, "\r\n") {
		return fmt.Errorf("entry %q contains a line break", entry)
	}
	unlock, err := s.acquireExclusive()
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.file.WriteString(entry + "\n"); err != nil {
		return fmt.Errorf("appending to %s: %w", s.fileName, err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", s.fileName, err)
	}
	s.logger.Debug("write: appended entry", zap.String("entry", entry))
	return nil
}

// Truncate empties the store file.
func (s *Store) Truncate() error {
	if s.file == nil {
		return fmt.Errorf("store is closed")
	}
	unlock, err := s.acquireExclusive()
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.file.Truncate(0); err != nil {
		return fmt.Errorf("truncating %s: %w", s.fileName, err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", s.fileName, err)
	}
	s.logger.Debug("write: truncated store")
	return nil
}

// ReadLines calls fn for each line of the store in order, without the line
// terminator. Lines have no length limit. A missing file reads as empty. An
// error from fn stops the read and is returned.
func (s *Store) ReadLines(fn func(line string) error) error {
	unlock, err := s.acquireShared()
	if err != nil {
		return err
	}
	defer unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("read: store file missing, nothing to load")
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.fileName, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	n := 0
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			n++
			if ferr := fn(TrimLineEnd(line)); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading %s at line %d: %w", s.fileName, n+1, err)
		}
	}
	s.logger.Debug("read: scanned store", zap.Int("lines", n))
	return nil
}

// TrimLineEnd strips a trailing "\n" or "\r\n".
func TrimLineEnd(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// ReadRaw returns the whole store contents. A missing file reads as empty.
func (s *Store) ReadRaw() ([]byte, error) {
	unlock, err := s.acquireShared()
	if err != nil {
		return nil, err
	}
	defer unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.fileName, err)
	}
	return data, nil
}

func (s *Store) acquireExclusive() (func(), error) {
	return s.acquire("exclusive", func(fl *flock.Flock, ctx context.Context) (bool, error) {
		return fl.TryLockContext(ctx, lockRetryDelay)
	})
}

func (s *Store) acquireShared() (func(), error) {
	return s.acquire("shared", func(fl *flock.Flock, ctx context.Context) (bool, error) {
		return fl.TryRLockContext(ctx, lockRetryDelay)
	})
}

// acquire takes a file lock with the configured timeout. It returns an unlock
// function that must be deferred by the caller.
func (s *Store) acquire(kind string, try func(*flock.Flock, context.Context) (bool, error)) (func(), error) {
	fl := flock.New(s.lockPath)

	s.logger.Debug("lock: acquiring " + kind + " lock")
	ctx, cancel := context.WithTimeout(context.Background(), s.lockTimeout)
	defer cancel()

	locked, err := try(fl, ctx)
	if err != nil || !locked {
		return nil, fmt.Errorf("could not acquire lock on %s - another process may be using dedupe", s.lockPath)
	}
	s.logger.Debug("lock: " + kind + " lock acquired")

	return func() {
		fl.Unlock()
		s.logger.Debug("lock: " + kind + " lock released")
	}, nil
}
