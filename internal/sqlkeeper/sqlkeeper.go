// Package sqlkeeper implements the embedded SQLite storage backend
// used by standalone deployments. The driver is pure Go, so the binary
// stays cgo-free.
package sqlkeeper

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/wurt83ow/guestbook/internal/models"
	"github.com/wurt83ow/guestbook/internal/storage"
	"go.uber.org/zap"
)

// timeLayout is fixed-width UTC so lexical ordering of stored strings
// equals chronological ordering; the window query compares text.
const timeLayout = "2006-01-02T15:04:05.000Z"

type Log interface {
	Info(string, ...zap.Field)
}

type SQLKeeper struct {
	db  *sql.DB
	log Log
}

// NewSQLKeeper opens (creating if necessary) the SQLite database at the
// configured path and ensures the messages table exists. Returns nil on
// failure so the storage layer reports unavailability.
func NewSQLKeeper(path func() string, log Log) *SQLKeeper {
	p := path()
	if p == "" {
		log.Info("sqlite path is empty")
		return nil
	}

	db, err := sql.Open("sqlite", "file:"+p+"?_busy_timeout=10000")
	if err != nil {
		log.Info("unable to open sqlite database: ", zap.Error(err))
		return nil
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message TEXT NOT NULL,
		created_at TEXT NOT NULL,
		ip_hash TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT ''
	)`); err != nil {
		log.Info("sqlite table creation failed: ", zap.Error(err))
		return nil
	}

	log.Info("connected to sqlite", zap.String("path", p))

	return &SQLKeeper{
		db:  db,
		log: log,
	}
}

func (kp *SQLKeeper) InsertMessage(ctx context.Context, message models.Message) (string, error) {
	res, err := kp.db.ExecContext(ctx,
		`INSERT INTO messages (message, created_at, ip_hash, user_agent) VALUES (?, ?, ?, ?)`,
		message.Text, message.CreatedAt.UTC().Format(timeLayout), message.IPFingerprint, message.UserAgent)
	if err != nil {
		return "", err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

func (kp *SQLKeeper) CountSince(ctx context.Context, fingerprint string, since time.Time) (int, error) {
	var count int
	err := kp.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE ip_hash = ? AND created_at > ?`,
		fingerprint, since.UTC().Format(timeLayout)).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (kp *SQLKeeper) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := kp.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (kp *SQLKeeper) GetMessages(ctx context.Context, limit int) ([]models.Message, error) {
	rows, err := kp.db.QueryContext(ctx,
		`SELECT id, message, created_at FROM messages ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var (
			id      int64
			created string
			m       models.Message
		)
		if err := rows.Scan(&id, &m.Text, &created); err != nil {
			return nil, err
		}
		m.ID = strconv.FormatInt(id, 10)
		if m.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

func (kp *SQLKeeper) DeleteMessage(ctx context.Context, id string) error {
	numID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return storage.ErrNotFound
	}

	res, err := kp.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, numID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (kp *SQLKeeper) Ping(ctx context.Context) error {
	return kp.db.PingContext(ctx)
}

func (kp *SQLKeeper) Close() error {
	err := kp.db.Close()
	if err == nil {
		kp.log.Info("sqlite database closed")
	}
	return err
}
