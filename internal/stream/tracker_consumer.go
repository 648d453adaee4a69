package stream

import (
	"context"
	"log"

	"github.com/goccy/go-json"

	"tracker_server/adapter/in/worker"
)

type Consumer struct {
	stream  *RedisStream
	handler *worker.Handler
	name    string
}

func NewConsumer(stream *RedisStream, handler *worker.Handler, name string) *Consumer {
	return &Consumer{
		stream:  stream,
		handler: handler,
		name:    name,
	}
}

func (c *Consumer) Start(ctx context.Context) {
	streams := []string{StreamMessages, StreamReinfer}
	for _, s := range streams {
		if err := c.stream.CreateGroup(ctx, s); err != nil {
			log.Printf("Failed to create group for %s: %v", s, err)
		}
	}

	go c.consume(ctx, StreamMessages)
	go c.consume(ctx, StreamReinfer)
}

func (c *Consumer) consume(ctx context.Context, stream string) {
	c.stream.Consume(ctx, stream, c.name, func(id string, data []byte) error {
		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			log.Printf("Failed to unmarshal job: %v", err)
			return err
		}

		msg := &worker.Message{
			ID:        job.ID,
			Type:      job.Type,
			Payload:   job.Payload,
			CreatedAt: job.CreatedAt,
		}

		return c.handler.Process(ctx, msg)
	})
}
