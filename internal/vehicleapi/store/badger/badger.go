package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/model"
	"github.com/autopeer-io/vehicle-api/pkg/log"
)

const (
	vehiclePrefix = "vehicle/"
	platePrefix   = "plate/"
	sequenceKey   = "seq/vehicle"

	// maxTxnAttempts bounds the retries of a write transaction that lost a commit race.
	maxTxnAttempts = 16
)

var _ core.VehicleRepository = (*Store)(nil)

// Config controls how the badger database is opened.
type Config struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool

	// GCInterval enables periodic value log GC for on-disk databases. Zero disables it.
	GCInterval     time.Duration
	GCDiscardRatio float64
}

// InMemoryConfig returns a configuration that never touches disk.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Store persists vehicles as JSON values in badger.
//
// Layout:
//
//	vehicle/<id, zero padded>  -> JSON vehicle
//	plate/<plate>              -> id, 8 bytes big endian
type Store struct {
	db  *badger.DB
	seq *badger.Sequence
	cfg Config
}

// Open opens (or creates) the database described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{logger: log.WithName("badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	seq, err := db.GetSequence([]byte(sequenceKey), 100)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open id sequence: %w", err)
	}

	return &Store{db: db, seq: seq, cfg: cfg}, nil
}

// Close releases the id sequence lease and closes the database.
func (s *Store) Close() error {
	if err := s.seq.Release(); err != nil {
		log.Warn("Failed to release id sequence", "error", err)
	}
	return s.db.Close()
}

// RunGC runs value log garbage collection every GCInterval until ctx is done.
// It returns immediately for in-memory databases or when GC is disabled.
func (s *Store) RunGC(ctx context.Context) {
	if s.cfg.InMemory || s.cfg.GCInterval <= 0 {
		return
	}

	ratio := s.cfg.GCDiscardRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}

	wait.UntilWithContext(ctx, func(context.Context) {
		err := s.db.RunValueLogGC(ratio)
		if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
			log.Warn("Badger value log GC failed", "error", err)
		}
	}, s.cfg.GCInterval)
}

func (s *Store) FindAll(_ context.Context) ([]model.Vehicle, error) {
	out := []model.Vehicle{}

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(vehiclePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var v model.Vehicle
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &v)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) FindByID(_ context.Context, id int64) (*model.Vehicle, error) {
	var v *model.Vehicle
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		v, err = getVehicle(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Store) ExistsByID(_ context.Context, id int64) (bool, error) {
	return s.exists(vehicleKey(id))
}

func (s *Store) ExistsByPlate(_ context.Context, plate string) (bool, error) {
	return s.exists(plateKey(plate))
}

func (s *Store) Save(_ context.Context, v *model.Vehicle) (*model.Vehicle, error) {
	if v == nil {
		return nil, fmt.Errorf("vehicle is required: %w", core.ErrInvalidInput)
	}

	rec := v.Clone()
	insert := rec.ID == 0
	if insert {
		next, err := s.seq.Next()
		if err != nil {
			return nil, fmt.Errorf("allocate vehicle id: %w", err)
		}
		rec.ID = int64(next) + 1
	}

	err := s.update(func(txn *badger.Txn) error {
		owner, taken, err := plateOwner(txn, rec.Plate)
		if err != nil {
			return err
		}
		if taken && owner != rec.ID {
			return fmt.Errorf("plate %q: %w", rec.Plate, core.ErrConflict)
		}

		if !insert {
			prev, err := getVehicle(txn, rec.ID)
			if err != nil {
				return err
			}
			if prev.Plate != rec.Plate {
				if err := txn.Delete(plateKey(prev.Plate)); err != nil {
					return err
				}
			}
		}

		return putVehicle(txn, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) DeleteByID(_ context.Context, id int64) error {
	return s.update(func(txn *badger.Txn) error {
		v, err := getVehicle(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(plateKey(v.Plate)); err != nil {
			return err
		}
		return txn.Delete(vehicleKey(id))
	})
}

func (s *Store) Count(_ context.Context) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(vehiclePrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}

// update runs fn in a read-write transaction, retrying when the commit loses a race.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnAttempts; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("transaction kept conflicting after %d attempts: %w", maxTxnAttempts, err)
}

func (s *Store) exists(key []byte) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			found = true
			return nil
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil
		default:
			return err
		}
	})
	return found, err
}

func getVehicle(txn *badger.Txn, id int64) (*model.Vehicle, error) {
	item, err := txn.Get(vehicleKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("vehicle %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	v := &model.Vehicle{}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	}); err != nil {
		return nil, fmt.Errorf("decode vehicle %d: %w", id, err)
	}
	return v, nil
}

func putVehicle(txn *badger.Txn, v *model.Vehicle) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := txn.Set(vehicleKey(v.ID), data); err != nil {
		return err
	}

	var id [8]byte
	binary.BigEndian.PutUint64(id[:], uint64(v.ID))
	return txn.Set(plateKey(v.Plate), id[:])
}

func plateOwner(txn *badger.Txn, plate string) (int64, bool, error) {
	item, err := txn.Get(plateKey(plate))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	var owner int64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt plate index for %q", plate)
		}
		owner = int64(binary.BigEndian.Uint64(val))
		return nil
	})
	return owner, true, err
}

func vehicleKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", vehiclePrefix, id))
}

func plateKey(plate string) []byte {
	return []byte(platePrefix + plate)
}

// badgerLogger routes badger's internal logs to the service logger.
// Badger's info output is chatty, so it is demoted to debug.
type badgerLogger struct {
	logger log.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(nil, fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
