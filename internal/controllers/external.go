package controllers

import (
	"encoding/json"

	"github.com/wurt83ow/guestbook/internal/models"
	"go.uber.org/zap"
)

// KafkaProducer is the transport used to publish accepted messages.
type KafkaProducer interface {
	SendMessage(key, message []byte) error
}

// ExtController publishes accepted guestbook messages as events so
// external consumers (moderation, notifications) can react without
// polling the admin API.
type ExtController struct {
	kafka KafkaProducer
	log   Log
}

func NewExtController(kafka KafkaProducer, log Log) *ExtController {
	return &ExtController{
		kafka: kafka,
		log:   log,
	}
}

// PublishMessage sends the accepted message to the event topic. The
// event body carries only the public fields; the fingerprint and user
// agent stay server-side.
func (c *ExtController) PublishMessage(message models.Message) error {
	event := struct {
		ID        string `json:"id"`
		Message   string `json:"message"`
		CreatedAt string `json:"created_at"`
	}{
		ID:        message.ID,
		Message:   message.Text,
		CreatedAt: message.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	}

	data, err := json.Marshal(event)
	if err != nil {
		c.log.Info("error marshaling message event: ", zap.Error(err))
		return err
	}

	if err := c.kafka.SendMessage([]byte(message.ID), data); err != nil {
		c.log.Info("error sending message event to kafka: ", zap.Error(err))
		return err
	}

	c.log.Info("message event published", zap.String("messageID", message.ID))
	return nil
}
