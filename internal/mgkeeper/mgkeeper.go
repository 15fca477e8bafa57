// Package mgkeeper implements the MongoDB storage backend used by
// serverless deployments. Documents live in the portfolio database,
// messages collection, matching data written by earlier deployments.
package mgkeeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wurt83ow/guestbook/internal/models"
	"github.com/wurt83ow/guestbook/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	databaseName   = "portfolio"
	collectionName = "messages"
)

type Log interface {
	Info(string, ...zap.Field)
}

type MGKeeper struct {
	client *mongo.Client
	coll   *mongo.Collection
	log    Log
}

type messageDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Text          string             `bson:"message"`
	CreatedAt     time.Time          `bson:"created_at"`
	IPFingerprint string             `bson:"ip_hash"`
	UserAgent     string             `bson:"user_agent"`
}

// NewMGKeeper connects to MongoDB using the configured URI. Returns nil
// when the URI is missing or the server cannot be selected, so the
// storage layer reports unavailability instead of crashing the process.
func NewMGKeeper(uri func() string, log Log) *MGKeeper {
	addr := uri()
	if addr == "" {
		log.Info("mongodb uri is empty")
		return nil
	}

	opts := options.Client().
		ApplyURI(addr).
		SetServerSelectionTimeout(5 * time.Second).
		SetSocketTimeout(45 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		log.Info("unable to connect to mongodb: ", zap.Error(err))
		return nil
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Info("mongodb ping failed: ", zap.Error(err))
		return nil
	}

	log.Info("connected to mongodb")

	return &MGKeeper{
		client: client,
		coll:   client.Database(databaseName).Collection(collectionName),
		log:    log,
	}
}

func (kp *MGKeeper) InsertMessage(ctx context.Context, message models.Message) (string, error) {
	res, err := kp.coll.InsertOne(ctx, messageDoc{
		Text:          message.Text,
		CreatedAt:     message.CreatedAt,
		IPFingerprint: message.IPFingerprint,
		UserAgent:     message.UserAgent,
	})
	if err != nil {
		return "", err
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (kp *MGKeeper) CountSince(ctx context.Context, fingerprint string, since time.Time) (int, error) {
	count, err := kp.coll.CountDocuments(ctx, bson.M{
		"ip_hash":    fingerprint,
		"created_at": bson.M{"$gt": since},
	})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (kp *MGKeeper) CountAll(ctx context.Context) (int, error) {
	count, err := kp.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (kp *MGKeeper) GetMessages(ctx context.Context, limit int) ([]models.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := kp.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	for cursor.Next(ctx) {
		var doc messageDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		messages = append(messages, models.Message{
			ID:            doc.ID.Hex(),
			Text:          doc.Text,
			CreatedAt:     doc.CreatedAt,
			IPFingerprint: doc.IPFingerprint,
			UserAgent:     doc.UserAgent,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

func (kp *MGKeeper) DeleteMessage(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return storage.ErrNotFound
	}

	res, err := kp.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (kp *MGKeeper) Ping(ctx context.Context) error {
	if err := kp.client.Ping(ctx, readpref.Primary()); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
		}
		return err
	}
	return nil
}

func (kp *MGKeeper) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := kp.client.Disconnect(ctx); err != nil {
		return err
	}
	kp.log.Info("mongodb connection closed")
	return nil
}
