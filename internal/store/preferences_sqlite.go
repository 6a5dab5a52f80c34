package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
)

// preferencesRecord stores the whole preferences document as JSON, one row per user.
type preferencesRecord struct {
	UserID    string `gorm:"primaryKey"`
	Document  string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (preferencesRecord) TableName() string { return "preference_documents" }

type preferencesSQLStore struct {
	db *gorm.DB
}

// NewPreferencesSQLStore backs preferences with a SQL database (SQLite for local runs).
// The db should be opened with gorm.Config{TranslateError: true} so duplicate keys
// surface as gorm.ErrDuplicatedKey.
func NewPreferencesSQLStore(db *gorm.DB) *preferencesSQLStore {
	return &preferencesSQLStore{db: db}
}

// Migrate creates the tables used by the SQL stores.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&preferencesRecord{}, &models.User{})
}

func (s *preferencesSQLStore) Load(ctx context.Context, userID string) (*models.Preferences, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	var rec preferencesRecord
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errs.NewDatabaseError("read", "failed to load preferences for user "+userID, err)
	}

	var p models.Preferences
	if err := json.Unmarshal([]byte(rec.Document), &p); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to parse preferences for user "+userID, err)
	}
	return &p, nil
}

func (s *preferencesSQLStore) Save(ctx context.Context, p *models.Preferences) error {
	if err := preparePreferences(p); err != nil {
		return err
	}
	touch(p, time.Now())
	rec, err := newPreferencesRecord(p)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(rec).Error
	if err != nil {
		return errs.NewDatabaseError("update", "failed to save preferences for user "+p.UserID, err)
	}
	return nil
}

func (s *preferencesSQLStore) CreateDefault(ctx context.Context, userID string) (*models.Preferences, error) {
	p := models.DefaultPreferences(userID)
	if err := preparePreferences(p); err != nil {
		return nil, err
	}
	touch(p, time.Now())
	rec, err := newPreferencesRecord(p)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.NewAlreadyExistsError(fmt.Sprintf("preferences for user %q already exist", userID))
		}
		return nil, errs.NewDatabaseError("create", "failed to create preferences for user "+userID, err)
	}
	return p, nil
}

func newPreferencesRecord(p *models.Preferences) (*preferencesRecord, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, errs.NewDatabaseError("encode", "failed to encode preferences for user "+p.UserID, err)
	}
	return &preferencesRecord{
		UserID:    p.UserID,
		Document:  string(data),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}, nil
}
