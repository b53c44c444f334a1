package repositories

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// OpenBadger opens the Badger store at path. An empty path opens an
// in-memory store, which is what the tests use.
func OpenBadger(path string, logger *slog.Logger) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithNumVersionsToKeep(1)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	if logger != nil {
		opts = opts.WithLogger(badgerLogger{logger.With("component", "badger")})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return db, nil
}

// Backup streams a full snapshot of db to w.
func Backup(db *badger.DB, w io.Writer) (uint64, error) {
	return db.Backup(w, 0)
}

// Restore loads a snapshot produced by Backup into db.
func Restore(db *badger.DB, r io.Reader) error {
	return db.Load(r, 16)
}

// badgerLogger adapts slog to badger's logger interface.
type badgerLogger struct {
	l *slog.Logger
}

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Error(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warn(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Debug(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Debug(fmt.Sprintf(format, args...))
}
