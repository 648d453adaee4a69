// Package mongodb implements MongoDB adapters for the application.
package mongodb

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tracker_server/core/port/out"
)

// =============================================================================
// MongoDB Message Body Adapter
// =============================================================================

const (
	collectionMessageBodies = "message_bodies"

	// Only compress bodies larger than this.
	compressionThreshold = 1024 // 1KB

	// Bodies are kept long enough to cover reprocessing windows.
	bodyTTL = 90 * 24 * time.Hour
)

// BodyAdapter implements out.BodyRepository using MongoDB. Bodies are
// write-once per message id and expire via a TTL index.
type BodyAdapter struct {
	collection *mongo.Collection
}

// NewBodyAdapter creates a new MongoDB body adapter.
func NewBodyAdapter(db *mongo.Database) *BodyAdapter {
	return &BodyAdapter{collection: db.Collection(collectionMessageBodies)}
}

// EnsureIndexes creates necessary indexes for the collection.
func (a *BodyAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "message_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// bodyDocument represents the MongoDB document structure.
type bodyDocument struct {
	MessageID    string    `bson:"message_id"`
	Text         []byte    `bson:"text"`
	IsCompressed bool      `bson:"is_compressed"`
	OriginalSize int64     `bson:"original_size"`
	StoredAt     time.Time `bson:"stored_at"`
	ExpiresAt    time.Time `bson:"expires_at"`
}

// Put stores a message body, replacing any previous version.
func (a *BodyAdapter) Put(ctx context.Context, body *out.MessageBody) error {
	doc, err := toDocument(body)
	if err != nil {
		return fmt.Errorf("failed to convert body to document: %w", err)
	}

	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"message_id": body.MessageID}

	if _, err := a.collection.ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("failed to save message body: %w", err)
	}
	return nil
}

// Get retrieves a message body. A missing body is (nil, nil).
func (a *BodyAdapter) Get(ctx context.Context, messageID string) (*out.MessageBody, error) {
	var doc bodyDocument
	filter := bson.M{"message_id": messageID}

	if err := a.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message body: %w", err)
	}
	return toBody(&doc)
}

// Delete removes a message body.
func (a *BodyAdapter) Delete(ctx context.Context, messageID string) error {
	filter := bson.M{"message_id": messageID}

	if _, err := a.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete message body: %w", err)
	}
	return nil
}

// =============================================================================
// Conversion + compression
// =============================================================================

func toDocument(body *out.MessageBody) (*bodyDocument, error) {
	now := time.Now().UTC()
	doc := &bodyDocument{
		MessageID:    body.MessageID,
		Text:         []byte(body.BodyText),
		OriginalSize: int64(len(body.BodyText)),
		StoredAt:     now,
		ExpiresAt:    now.Add(bodyTTL),
	}

	if doc.OriginalSize > compressionThreshold {
		compressed, err := compress(doc.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to compress body: %w", err)
		}
		// Keep the smaller representation.
		if int64(len(compressed)) < doc.OriginalSize {
			doc.Text = compressed
			doc.IsCompressed = true
		}
	}
	return doc, nil
}

func toBody(doc *bodyDocument) (*out.MessageBody, error) {
	text := doc.Text
	if doc.IsCompressed {
		decompressed, err := decompress(text)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress body: %w", err)
		}
		text = decompressed
	}
	return &out.MessageBody{
		MessageID: doc.MessageID,
		BodyText:  string(text),
	}, nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
