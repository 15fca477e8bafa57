// Package bdkeeper implements the PostgreSQL storage backend.
package bdkeeper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate"
	"github.com/golang-migrate/migrate/database/postgres"
	_ "github.com/golang-migrate/migrate/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/wurt83ow/guestbook/internal/models"
	"github.com/wurt83ow/guestbook/internal/storage"
	"go.uber.org/zap"
)

type Log interface {
	Info(string, ...zap.Field)
}

type BDKeeper struct {
	pool *pgxpool.Pool
	log  Log
}

// NewBDKeeper connects to Postgres using the configured DSN and runs
// pending migrations. It returns nil when the DSN is missing or the
// database is unreachable; the storage layer treats a nil keeper as an
// unconfigured backend.
func NewBDKeeper(dsn func() string, log Log) *BDKeeper {
	addr := dsn()
	if addr == "" {
		log.Info("postgres dsn is empty")
		return nil
	}

	config, err := pgxpool.ParseConfig(addr)
	if err != nil {
		log.Info("unable to parse database DSN: ", zap.Error(err))
		return nil
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		log.Info("unable to connect to database: ", zap.Error(err))
		return nil
	}

	connConfig, err := pgx.ParseConfig(addr)
	if err != nil {
		log.Info("unable to parse connection string: ", zap.Error(err))
		return nil
	}
	sqlDB := stdlib.OpenDB(*connConfig)

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		log.Info("error getting migration driver: ", zap.Error(err))
		return nil
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsURL(), "postgres", driver)
	if err != nil {
		log.Info("error creating migration instance: ", zap.Error(err))
		return nil
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Info("error while performing migration: ", zap.Error(err))
		return nil
	}

	log.Info("connected to postgres")

	return &BDKeeper{
		pool: pool,
		log:  log,
	}
}

// migrationsURL locates the migrations directory relative to the
// working directory, falling back to the repo root for test runs.
func migrationsURL() string {
	dir, err := os.Getwd()
	if err != nil {
		return "file://migrations"
	}
	if _, err := os.Stat(dir + "/migrations"); err != nil {
		return "file://../../migrations"
	}
	return fmt.Sprintf("file://%s/migrations", dir)
}

func (kp *BDKeeper) InsertMessage(ctx context.Context, message models.Message) (string, error) {
	var id int64
	query := `INSERT INTO messages (message, created_at, ip_hash, user_agent) VALUES ($1, $2, $3, $4) RETURNING id`
	err := kp.pool.QueryRow(ctx, query,
		message.Text, message.CreatedAt, message.IPFingerprint, message.UserAgent).Scan(&id)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

func (kp *BDKeeper) CountSince(ctx context.Context, fingerprint string, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM messages WHERE ip_hash = $1 AND created_at > $2`
	if err := kp.pool.QueryRow(ctx, query, fingerprint, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (kp *BDKeeper) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := kp.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (kp *BDKeeper) GetMessages(ctx context.Context, limit int) ([]models.Message, error) {
	query := `SELECT id, message, created_at FROM messages ORDER BY created_at DESC LIMIT $1`

	rows, err := kp.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var (
			id int64
			m  models.Message
		)
		if err := rows.Scan(&id, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.ID = strconv.FormatInt(id, 10)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

func (kp *BDKeeper) DeleteMessage(ctx context.Context, id string) error {
	numID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return storage.ErrNotFound
	}

	var tag pgconn.CommandTag
	tag, err = kp.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, numID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (kp *BDKeeper) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := kp.pool.Ping(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
		}
		return err
	}
	return nil
}

func (kp *BDKeeper) Close() error {
	if kp.pool == nil {
		return errors.New("attempted to close a nil database connection pool")
	}
	kp.pool.Close()
	kp.log.Info("database connection pool closed")
	return nil
}
