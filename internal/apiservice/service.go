// Package apiservice orchestrates public message submission: validate,
// rate-check, persist, respond. The pipeline is modeled as an explicit
// state machine so every terminal outcome (rejection, storage failure,
// success) is a named state with no retries anywhere.
package apiservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/qmuntal/stateless"
	"github.com/wurt83ow/guestbook/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Validation rejections. Handlers map these to 400 with the wire error
// strings clients already expect.
var (
	ErrEmptyMessage   = errors.New("message cannot be empty")
	ErrMessageTooLong = errors.New("message is too long")
)

// maxMessageLen bounds the trimmed message length in characters.
const maxMessageLen = 1000

// Pipeline states.
type FSMState stateless.State

var (
	StateReceived    FSMState = "Received"
	StateValidated   FSMState = "Validated"
	StateRateChecked FSMState = "RateChecked"
	StatePersisted   FSMState = "Persisted"
	StateResponded   FSMState = "Responded"
	StateRejected    FSMState = "Rejected"
	StateFailed      FSMState = "Failed"
)

// Pipeline triggers.
type FSMTrigger stateless.Trigger

var (
	TriggerReceive   FSMTrigger = "Receive"
	TriggerValidated FSMTrigger = "Validated"
	TriggerAdmitted  FSMTrigger = "Admitted"
	TriggerPersisted FSMTrigger = "Persisted"
	TriggerRejected  FSMTrigger = "Rejected"
	TriggerFailed    FSMTrigger = "Failed"
)

// Storage is the slice of the storage layer the service needs.
type Storage interface {
	InsertMessage(ctx context.Context, message models.Message) (string, error)
}

// RateLimiter admits or rejects a fingerprint's submission.
type RateLimiter interface {
	Allow(ctx context.Context, fingerprint string) error
}

// External receives accepted messages for downstream consumers. A nil
// External disables publishing.
type External interface {
	PublishMessage(message models.Message) error
}

type Log interface {
	Info(string, ...zapcore.Field)
}

type SubmissionService struct {
	storage  Storage
	limiter  RateLimiter
	external External
	validate *validator.Validate
	log      Log
}

func NewSubmissionService(storage Storage, limiter RateLimiter, external External, log Log) *SubmissionService {
	return &SubmissionService{
		storage:  storage,
		limiter:  limiter,
		external: external,
		validate: validator.New(),
		log:      log,
	}
}

// Submit runs one message through the pipeline and returns the persisted
// message on success. Failures come back as ErrEmptyMessage,
// ErrMessageTooLong, the limiter's rejection, or the storage error;
// each is terminal for the request.
func (s *SubmissionService) Submit(ctx context.Context, req models.RequestMessage, fingerprint, userAgent string) (models.Message, error) {
	type pipeline struct {
		text    string
		message models.Message
		err     error
	}

	p := &pipeline{}
	fsm := stateless.NewStateMachine(StateReceived)

	fsm.Configure(StateReceived).
		Permit(TriggerReceive, StateValidated)

	fsm.Configure(StateValidated).
		OnEntry(func(ctx context.Context, _ ...any) error {
			p.text = strings.TrimSpace(req.Message)
			if err := s.checkText(p.text); err != nil {
				p.err = err
				return fsm.FireCtx(ctx, TriggerRejected)
			}
			return fsm.FireCtx(ctx, TriggerValidated)
		}).
		Permit(TriggerValidated, StateRateChecked).
		Permit(TriggerRejected, StateRejected)

	fsm.Configure(StateRateChecked).
		OnEntry(func(ctx context.Context, _ ...any) error {
			if err := s.limiter.Allow(ctx, fingerprint); err != nil {
				p.err = err
				return fsm.FireCtx(ctx, TriggerRejected)
			}
			return fsm.FireCtx(ctx, TriggerAdmitted)
		}).
		Permit(TriggerAdmitted, StatePersisted).
		Permit(TriggerRejected, StateRejected)

	fsm.Configure(StatePersisted).
		OnEntry(func(ctx context.Context, _ ...any) error {
			msg := models.Message{
				Text:          p.text,
				IPFingerprint: fingerprint,
				UserAgent:     userAgent,
			}
			id, err := s.storage.InsertMessage(ctx, msg)
			if err != nil {
				p.err = err
				return fsm.FireCtx(ctx, TriggerFailed)
			}
			msg.ID = id
			p.message = msg
			return fsm.FireCtx(ctx, TriggerPersisted)
		}).
		Permit(TriggerPersisted, StateResponded).
		Permit(TriggerFailed, StateFailed)

	fsm.Configure(StateResponded).
		OnEntry(func(_ context.Context, _ ...any) error {
			s.publish(p.message)
			return nil
		})

	if err := fsm.FireCtx(ctx, TriggerReceive); err != nil {
		return models.Message{}, err
	}
	if p.err != nil {
		return models.Message{}, p.err
	}
	return p.message, nil
}

// checkText validates the trimmed message text.
func (s *SubmissionService) checkText(text string) error {
	err := s.validate.Var(text, fmt.Sprintf("required,max=%d", maxMessageLen))
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.Tag() {
			case "required":
				return ErrEmptyMessage
			case "max":
				return ErrMessageTooLong
			}
		}
	}
	return err
}

// publish hands an accepted message to the external controller. Event
// delivery is best effort and never fails the submission.
func (s *SubmissionService) publish(message models.Message) {
	if s.external == nil {
		return
	}
	if err := s.external.PublishMessage(message); err != nil {
		s.log.Info("error publishing accepted message: ", zap.Error(err))
	}
}
