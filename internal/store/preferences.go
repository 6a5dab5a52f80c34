package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
	"github.com/GregMSThompson/dashboard-backend/pkg/logger"
)

// DefaultPreferencesCollection holds one document per user, keyed by user id.
const DefaultPreferencesCollection = "dashboard_preferences"

type preferencesStore struct {
	client     *firestore.Client
	collection string
}

func NewPreferencesStore(client *firestore.Client, collection string) *preferencesStore {
	if collection == "" {
		collection = DefaultPreferencesCollection
	}
	return &preferencesStore{client: client, collection: collection}
}

func (s *preferencesStore) doc(userID string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(userID)
}

// Load returns nil without an error when the user has no preferences yet.
func (s *preferencesStore) Load(ctx context.Context, userID string) (*models.Preferences, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	snap, err := s.doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, errs.NewDatabaseError("read", "failed to load preferences for user "+userID, err)
	}
	var p models.Preferences
	if err := snap.DataTo(&p); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to parse preferences for user "+userID, err)
	}
	return &p, nil
}

// Save validates the whole document and replaces the stored copy.
func (s *preferencesStore) Save(ctx context.Context, p *models.Preferences) error {
	if err := preparePreferences(p); err != nil {
		return err
	}
	touch(p, time.Now())
	if _, err := s.doc(p.UserID).Set(ctx, p); err != nil {
		return errs.NewDatabaseError("update", "failed to save preferences for user "+p.UserID, err)
	}
	return nil
}

// CreateDefault persists the seeded document. It fails with AlreadyExistsError
// when another request created the document first.
func (s *preferencesStore) CreateDefault(ctx context.Context, userID string) (*models.Preferences, error) {
	log := logger.FromContext(ctx)

	p := models.DefaultPreferences(userID)
	if err := preparePreferences(p); err != nil {
		return nil, err
	}
	touch(p, time.Now())
	if _, err := s.doc(userID).Create(ctx, p); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, errs.NewAlreadyExistsError(fmt.Sprintf("preferences for user %q already exist", userID))
		}
		return nil, errs.NewDatabaseError("create", "failed to create preferences for user "+userID, err)
	}
	log.Debug("default preferences created", "collection", s.collection)
	return p, nil
}
