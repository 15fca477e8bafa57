package models

import "time"

// RequestMessage represents the incoming submission body from the client.
// Message carries the raw, untrimmed text; validation happens in the
// submission service.
type RequestMessage struct {
	Message string `json:"message" validate:"required"`
}

// LoginRequest represents the admin login pre-flight body.
type LoginRequest struct {
	Password string `json:"password"`
}

// Message represents a guestbook entry as persisted by a keeper.
//
// ID is assigned by the storage backend: decimal text for the SQL
// backends, ObjectID hex for Mongo. IPFingerprint and UserAgent are
// kept for diagnostics and rate limiting and are never serialized to
// clients.
type Message struct {
	ID            string    `json:"id" bson:"-"`
	Text          string    `json:"message" bson:"message"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	IPFingerprint string    `json:"-" bson:"ip_hash"`
	UserAgent     string    `json:"-" bson:"user_agent"`
}

// SubmitResult is the success envelope for an accepted submission.
type SubmitResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}
