package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wurt83ow/guestbook/internal/models"
	"go.uber.org/zap"
)

var (
	// ErrNotFound indicates the requested message does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable indicates the backend is unreachable or not
	// configured; handlers map it to 503 rather than 500.
	ErrUnavailable = errors.New("storage unavailable")
)

// ListCap bounds admin listings regardless of what the caller asks for.
const ListCap = 100

// queryTimeout bounds every keeper call so a stuck backend surfaces as
// unavailability instead of hanging the request.
const queryTimeout = 5 * time.Second

type Log interface {
	Info(string, ...zap.Field)
}

// Keeper is the contract every storage backend implements.
type Keeper interface {
	InsertMessage(ctx context.Context, message models.Message) (string, error)
	CountSince(ctx context.Context, fingerprint string, since time.Time) (int, error)
	CountAll(ctx context.Context) (int, error)
	GetMessages(ctx context.Context, limit int) ([]models.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// MessageStorage fronts a Keeper with logging, bounded timeouts and the
// listing cap. It is the only storage type the rest of the service
// talks to.
type MessageStorage struct {
	keeper Keeper
	log    Log
}

// NewMessageStorage creates a MessageStorage over keeper. A nil keeper
// is allowed: every operation then reports ErrUnavailable, mirroring a
// deployment with no connection string configured.
func NewMessageStorage(keeper Keeper, log Log) *MessageStorage {
	return &MessageStorage{
		keeper: keeper,
		log:    log,
	}
}

// InsertMessage assigns the server-side creation timestamp and persists
// the message, returning the backend-assigned id.
func (s *MessageStorage) InsertMessage(ctx context.Context, message models.Message) (string, error) {
	if s.keeper == nil {
		return "", ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	message.CreatedAt = time.Now().UTC()

	id, err := s.keeper.InsertMessage(ctx, message)
	if err != nil {
		s.log.Info("error inserting message to database: ", zap.Error(err))
		return "", s.mapErr(err)
	}

	return id, nil
}

// CountSince reports how many messages the fingerprint has submitted
// strictly after since. It is the rate limiter's source of truth.
func (s *MessageStorage) CountSince(ctx context.Context, fingerprint string, since time.Time) (int, error) {
	if s.keeper == nil {
		return 0, ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	count, err := s.keeper.CountSince(ctx, fingerprint, since)
	if err != nil {
		s.log.Info("error counting recent messages: ", zap.Error(err))
		return 0, s.mapErr(err)
	}

	return count, nil
}

// CountAll returns the total number of stored messages.
func (s *MessageStorage) CountAll(ctx context.Context) (int, error) {
	if s.keeper == nil {
		return 0, ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	count, err := s.keeper.CountAll(ctx)
	if err != nil {
		s.log.Info("error counting messages: ", zap.Error(err))
		return 0, s.mapErr(err)
	}

	return count, nil
}

// GetMessages returns at most min(limit, ListCap) messages, newest
// first. A non-positive limit means the cap.
func (s *MessageStorage) GetMessages(ctx context.Context, limit int) ([]models.Message, error) {
	if s.keeper == nil {
		return nil, ErrUnavailable
	}

	if limit <= 0 || limit > ListCap {
		limit = ListCap
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	messages, err := s.keeper.GetMessages(ctx, limit)
	if err != nil {
		s.log.Info("error getting messages from database: ", zap.Error(err))
		return nil, s.mapErr(err)
	}

	return messages, nil
}

// DeleteMessage removes the message with the given id. ErrNotFound is
// returned when no such message exists, including on repeated deletes.
func (s *MessageStorage) DeleteMessage(ctx context.Context, id string) error {
	if s.keeper == nil {
		return ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if err := s.keeper.DeleteMessage(ctx, id); err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Info("error deleting message: ", zap.Error(err))
		}
		return s.mapErr(err)
	}

	return nil
}

// Ping probes the backend and reports the round-trip latency.
func (s *MessageStorage) Ping(ctx context.Context) (time.Duration, error) {
	if s.keeper == nil {
		return 0, ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	start := time.Now()
	if err := s.keeper.Ping(ctx); err != nil {
		return 0, s.mapErr(err)
	}

	return time.Since(start), nil
}

// Close releases the underlying keeper connection.
func (s *MessageStorage) Close() error {
	if s.keeper == nil {
		return nil
	}
	return s.keeper.Close()
}

func (s *MessageStorage) mapErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
