// Package firestore implements the TokenStore on Google Cloud Firestore.
package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tinywideclouds/go-push-dispatch/pkg/notify"
)

// Store persists device records under users/{userID}/devices/{sha256(token)}.
// Hashing the token keeps document IDs opaque and prevents hot-spotting;
// writing the same token twice lands on the same document, which is what
// makes the registry's upsert atomic per (user, token).
type Store struct {
	client *firestore.Client
}

func NewStore(client *firestore.Client) *Store {
	return &Store{client: client}
}

// deviceRecord is the persisted representation of a notify.TokenRecord.
type deviceRecord struct {
	Token      string `firestore:"token"`
	DeviceInfo string `firestore:"device_info"`
	Platform   string `firestore:"platform"`
	CreatedAt  int64  `firestore:"created_at"`
	UpdatedAt  int64  `firestore:"updated_at"`
}

func (s *Store) Get(ctx context.Context, userID string) ([]notify.TokenRecord, error) {
	iter := s.devicesCollection(userID).OrderBy("created_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	records := make([]notify.TokenRecord, 0, 4)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iteration failed: %w", classify(err))
		}

		var record deviceRecord
		if err := doc.DataTo(&record); err != nil {
			// A corrupt row should not poison the whole lookup.
			continue
		}
		records = append(records, notify.TokenRecord{
			Token:      record.Token,
			DeviceInfo: record.DeviceInfo,
			Platform:   notify.Platform(record.Platform),
			CreatedAt:  record.CreatedAt,
			UpdatedAt:  record.UpdatedAt,
		})
	}
	return records, nil
}

func (s *Store) Put(ctx context.Context, userID string, record notify.TokenRecord) error {
	stored := deviceRecord{
		Token:      record.Token,
		DeviceInfo: record.DeviceInfo,
		Platform:   string(record.Platform),
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
	if _, err := s.deviceRef(userID, hashToken(record.Token)).Set(ctx, stored); err != nil {
		return fmt.Errorf("firestore write failed: %w", classify(err))
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, userID string, token string) error {
	if _, err := s.deviceRef(userID, hashToken(token)).Delete(ctx); err != nil {
		return fmt.Errorf("firestore delete failed: %w", classify(err))
	}
	return nil
}

// classify maps transport-level outages onto the storage taxonomy so the
// registry and engine can fail closed on an unreachable store.
func classify(err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", notify.ErrStorageUnavailable, err)
	}
	return err
}

func (s *Store) deviceRef(userID, docID string) *firestore.DocumentRef {
	return s.devicesCollection(userID).Doc(docID)
}

func (s *Store) devicesCollection(userID string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(userID).Collection("devices")
}

func hashToken(t string) string {
	sum := sha256.Sum256([]byte(t))
	return hex.EncodeToString(sum[:])
}
