// Package store provides durable persistence for memories and tasks over
// SQLite, plus a BadgerDB sidecar for ephemeral session data. The store is
// the serialization point shared by the conversation controller and the
// dashboard: both honor the same contract.
package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/gmsas95/aria/internal/config"
	apperrors "github.com/gmsas95/aria/internal/errors"
)

const taskIDCounter = "task_id"

// Store provides unified access to SQLite and BadgerDB.
type Store struct {
	db     *gorm.DB
	badger *badger.DB
	config *config.StorageConfig
}

// New creates a new Store instance.
func New(cfg *config.Config) (*Store, error) {
	sqlitePath := cfg.Storage.SQLitePath
	if sqlitePath == "" {
		sqlitePath = filepath.Join(cfg.Storage.DataDir, "aria.db")
	}

	// WAL keeps writes from the controller and the dashboard from blocking
	// each other's reads; busy_timeout serializes concurrent writers.
	sqliteDB, err := sql.Open("sqlite", sqlitePath+"?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000&_cache_size=-64000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqliteDB.SetMaxOpenConns(10)
	sqliteDB.SetMaxIdleConns(5)
	sqliteDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if err := db.AutoMigrate(
		&Memory{},
		&Task{},
		&Counter{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	badgerPath := cfg.Storage.BadgerPath
	if badgerPath == "" {
		badgerPath = filepath.Join(cfg.Storage.DataDir, "badger")
	}

	badgerOpts := badger.DefaultOptions(badgerPath).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20).
		WithMemTableSize(16 << 20)

	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Store{
		db:     db,
		badger: badgerDB,
		config: &cfg.Storage,
	}, nil
}

// Close closes all database connections.
func (s *Store) Close() error {
	return s.badger.Close()
}

// DB returns the GORM database instance.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// ==================== Memory Methods ====================

// SaveMemory upserts the memory record for key. Last write wins.
func (s *Store) SaveMemory(key, value string) error {
	mem := Memory{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&mem).Error
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrStorage, "failed to save memory")
	}

	return nil
}

// GetMemory returns the value for an exact key. Callers normalize keys
// before calling; there is no fuzzy matching here.
func (s *Store) GetMemory(key string) (string, error) {
	var mem Memory
	err := s.db.First(&mem, "key = ?", key).Error
	if err == gorm.ErrRecordNotFound {
		return "", apperrors.Wrap(err, apperrors.ErrNotFound, fmt.Sprintf("no memory for key %q", key))
	}
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrStorage, "failed to read memory")
	}
	return mem.Value, nil
}

// ListMemories returns all memories, most recently updated first.
func (s *Store) ListMemories() ([]Memory, error) {
	var memories []Memory
	if err := s.db.Order("updated_at DESC").Find(&memories).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStorage, "failed to list memories")
	}
	return memories, nil
}

// DeleteMemory removes a memory by exact key.
func (s *Store) DeleteMemory(key string) error {
	result := s.db.Delete(&Memory{}, "key = ?", key)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, apperrors.ErrStorage, "failed to delete memory")
	}
	if result.RowsAffected == 0 {
		return apperrors.Wrap(gorm.ErrRecordNotFound, apperrors.ErrNotFound, fmt.Sprintf("no memory for key %q", key))
	}
	return nil
}

// ==================== Task Methods ====================

// CreateTask inserts a pending task and returns its id. The id comes from
// the task_id counter bumped in the same transaction, so deleted ids are
// never handed out again.
func (s *Store) CreateTask(description string) (uint64, error) {
	var id uint64

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var counter Counter
		err := tx.First(&counter, "name = ?", taskIDCounter).Error
		if err == gorm.ErrRecordNotFound {
			counter = Counter{Name: taskIDCounter, Value: 0}
			if err := tx.Create(&counter).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		counter.Value++
		if err := tx.Save(&counter).Error; err != nil {
			return err
		}

		task := Task{
			ID:          counter.Value,
			Description: description,
			Status:      TaskStatusPending,
			CreatedAt:   time.Now(),
		}
		if err := tx.Create(&task).Error; err != nil {
			return err
		}

		id = task.ID
		return nil
	})
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrStorage, "failed to create task")
	}

	return id, nil
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(id uint64) (*Task, error) {
	var task Task
	err := s.db.First(&task, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.Wrap(err, apperrors.ErrNotFound, fmt.Sprintf("task %d not found", id))
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStorage, "failed to read task")
	}
	return &task, nil
}

// ListTasks returns tasks matching the filter, ordered by creation time
// ascending.
func (s *Store) ListTasks(filter TaskFilter) ([]Task, error) {
	query := s.db.Order("created_at ASC, id ASC")

	switch filter {
	case FilterPending:
		query = query.Where("status = ?", TaskStatusPending)
	case FilterCompleted:
		query = query.Where("status = ?", TaskStatusCompleted)
	case FilterAll, "":
	default:
		return nil, apperrors.New("STORE_003", fmt.Sprintf("unknown task filter %q", filter))
	}

	var tasks []Task
	if err := query.Find(&tasks).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStorage, "failed to list tasks")
	}
	return tasks, nil
}

// CompleteTask marks a task completed. Completing an already-completed
// task succeeds and leaves the first completion time unchanged.
func (s *Store) CompleteTask(id uint64) error {
	return s.completeOrFail(id)
}

func (s *Store) completeOrFail(id uint64) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var task Task
		if err := tx.First(&task, "id = ?", id).Error; err != nil {
			return err
		}

		if task.Status == TaskStatusCompleted {
			return nil
		}

		now := time.Now()
		task.Status = TaskStatusCompleted
		task.CompletedAt = &now
		return tx.Save(&task).Error
	})
	if err == gorm.ErrRecordNotFound {
		return apperrors.Wrap(err, apperrors.ErrNotFound, fmt.Sprintf("task %d not found", id))
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrStorage, "failed to complete task")
	}
	return nil
}

// DeleteTask removes a task permanently. There is no soft delete.
func (s *Store) DeleteTask(id uint64) error {
	result := s.db.Delete(&Task{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, apperrors.ErrStorage, "failed to delete task")
	}
	if result.RowsAffected == 0 {
		return apperrors.Wrap(gorm.ErrRecordNotFound, apperrors.ErrNotFound, fmt.Sprintf("task %d not found", id))
	}
	return nil
}

// ==================== Session Methods (BadgerDB) ====================

// SetSession stores ephemeral session data in BadgerDB.
func (s *Store) SetSession(key string, value []byte, ttl time.Duration) error {
	return s.badger.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte("session:"+key), value).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

// GetSession retrieves session data from BadgerDB.
func (s *Store) GetSession(key string) ([]byte, error) {
	var val []byte
	err := s.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("session:" + key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			val = append([]byte{}, v...)
			return nil
		})
	})
	return val, err
}

// DeleteSession removes session data.
func (s *Store) DeleteSession(key string) error {
	return s.badger.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte("session:" + key))
	})
}

// ==================== Audio Cache (BadgerDB) ====================

// CacheAudio stores synthesized speech keyed by a digest of the spoken
// text, so repeated replies skip the synthesizer.
func (s *Store) CacheAudio(digest string, audio []byte, ttl time.Duration) error {
	return s.badger.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte("audio:"+digest), audio).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

// CachedAudio retrieves cached audio by digest. Returns badger.ErrKeyNotFound
// on a miss.
func (s *Store) CachedAudio(digest string) ([]byte, error) {
	var val []byte
	err := s.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("audio:" + digest))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			val = append([]byte{}, v...)
			return nil
		})
	})
	return val, err
}
