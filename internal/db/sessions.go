package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arzan03/SecureDrop/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SessionRepository persists transfer sessions in MongoDB.
type SessionRepository struct {
	coll *mongo.Collection
}

// NewSessionRepository binds a repository to the transfers collection.
func NewSessionRepository(database *mongo.Database) *SessionRepository {
	return &SessionRepository{coll: database.Collection(TransfersCollection)}
}

// Create inserts a new session. A duplicate code yields ErrCodeTaken.
func (r *SessionRepository) Create(ctx context.Context, session *models.TransferSession) error {
	_, err := r.coll.InsertOne(ctx, session)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrCodeTaken
		}
		return fmt.Errorf("failed to save transfer session: %w", err)
	}
	return nil
}

// Get loads a session by code.
func (r *SessionRepository) Get(ctx context.Context, code string) (*models.TransferSession, error) {
	var session models.TransferSession
	err := r.coll.FindOne(ctx, bson.M{"_id": code}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get transfer session: %w", err)
	}
	return &session, nil
}

// Exists reports whether a session with this code is stored.
func (r *SessionRepository) Exists(ctx context.Context, code string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": code}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check session code: %w", err)
	}
	return n > 0, nil
}

// ClaimDownload marks an active session downloaded and increments its
// counter in one conditional update. Only one caller can win; the others get
// ErrClaimConflict.
func (r *SessionRepository) ClaimDownload(ctx context.Context, code string, now time.Time) (*models.TransferSession, error) {
	filter := bson.M{
		"_id":             code,
		"downloaded":      false,
		"expiration_date": bson.M{"$gte": now},
	}
	update := bson.M{
		"$set": bson.M{"downloaded": true, "downloaded_at": now},
		"$inc": bson.M{"download_count": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var session models.TransferSession
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrClaimConflict
		}
		return nil, fmt.Errorf("failed to mark session downloaded: %w", err)
	}
	return &session, nil
}

// Delete removes a session record.
func (r *SessionRepository) Delete(ctx context.Context, code string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": code})
	if err != nil {
		return fmt.Errorf("failed to delete transfer session: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListExpired returns up to limit sessions whose expiration is before t.
func (r *SessionRepository) ListExpired(ctx context.Context, t time.Time, limit int) ([]*models.TransferSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "expiration_date", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, bson.M{"expiration_date": bson.M{"$lt": t}}, opts)
}

// ListByOwner returns the owner's sessions, newest first.
func (r *SessionRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.TransferSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "upload_date", Value: -1}})
	return r.find(ctx, bson.M{"owner_id": ownerID}, opts)
}

// List returns every session, newest first.
func (r *SessionRepository) List(ctx context.Context) ([]*models.TransferSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "upload_date", Value: -1}})
	return r.find(ctx, bson.M{}, opts)
}

func (r *SessionRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.TransferSession, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfer sessions: %w", err)
	}
	defer cursor.Close(ctx)

	sessions := []*models.TransferSession{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("error decoding transfer sessions: %w", err)
	}
	return sessions, nil
}
