package out

import "context"

// =============================================================================
// Message Body Store (MongoDB - full bodies)
// =============================================================================

// MessageBody is a stored raw body for one collected message. Only the
// snippet lives in the relational row; full bodies are kept out of band.
type MessageBody struct {
	MessageID string `bson:"message_id"`
	BodyText  string `bson:"body_text"`
}

// BodyRepository defines the outbound port for message body storage.
// A missing body is (nil, nil), not an error: signature scanning simply
// falls back to the snippet.
type BodyRepository interface {
	Get(ctx context.Context, messageID string) (*MessageBody, error)
	Put(ctx context.Context, body *MessageBody) error
	Delete(ctx context.Context, messageID string) error
}
