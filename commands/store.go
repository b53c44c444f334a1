package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"inkpost/app/config"
	"inkpost/app/repositories"
	"inkpost/app/repositories/sqlite"

	"github.com/dgraph-io/badger/v4"
)

// store is an open content store of either driver.
type store struct {
	users repositories.UserRepository
	posts repositories.PostRepository
	// badger is nil when the sqlite driver is in use.
	badger *badger.DB
	close  func() error
}

func (s *store) Close() error {
	return s.close()
}

func openStore(cfg config.StoreConfig, logger *slog.Logger) (*store, error) {
	switch cfg.Driver {
	case config.DriverBadger:
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		db, err := repositories.OpenBadger(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		return &store{
			users:  repositories.NewBadgerUserRepository(db),
			posts:  repositories.NewBadgerPostRepository(db),
			badger: db,
			close:  db.Close,
		}, nil

	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create store directory: %w", err)
			}
		}
		st, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite at %q: %w", cfg.Path, err)
		}
		return &store{
			users: st.Users(),
			posts: st.Posts(),
			close: st.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// storeExists reports whether anything lives at the store path.
func storeExists(cfg config.StoreConfig) (bool, error) {
	_, err := os.Stat(cfg.Path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// removeStore deletes the store and, for sqlite, its journal files.
func removeStore(cfg config.StoreConfig) error {
	if cfg.Driver == config.DriverSQLite {
		for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
			if err := os.Remove(cfg.Path + suffix); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
		return nil
	}
	return os.RemoveAll(cfg.Path)
}
