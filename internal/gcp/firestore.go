package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/saad688/pdftoword/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// FirestoreJobStore mirrors job records into a collection keyed by job ID.
type FirestoreJobStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreJobStore(client *firestore.Client, collection string) *FirestoreJobStore {
	return &FirestoreJobStore{client: client, collection: collection}
}

func (s *FirestoreJobStore) Put(ctx context.Context, rec models.JobRecord) error {
	if _, err := s.client.Collection(s.collection).Doc(rec.ID).Set(ctx, rec); err != nil {
		return fmt.Errorf("failed to write job %s: %w", rec.ID, err)
	}
	return nil
}

func (s *FirestoreJobStore) Delete(ctx context.Context, id string) error {
	if _, err := s.client.Collection(s.collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete job %s: %w", id, err)
	}
	return nil
}

// FindByHash returns a completed job for the given content hash, or nil if
// there is none.
func (s *FirestoreJobStore) FindByHash(ctx context.Context, fileHash string) (*models.JobRecord, error) {
	docs, err := s.client.Collection(s.collection).
		Where("fileHash", "==", fileHash).
		Where("status", "==", string(models.JobCompleted)).
		Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var rec models.JobRecord
	if err := docs[0].DataTo(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode job record: %w", err)
	}
	return &rec, nil
}

func (s *FirestoreJobStore) Close() error {
	return s.client.Close()
}
