package drafts

import (
	"context"
	"fmt"

	"github.com/replygate/replygate/internal/models"
	"github.com/replygate/replygate/internal/services/database"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

const defaultListLimit = 50

// ListFilter narrows a draft listing. Zero values mean no filtering.
type ListFilter struct {
	SenderID string
	Tone     models.Tone
	Limit    int
}

// Service persists generated drafts. Saving is best-effort from the API
// layer's point of view: a failed write is logged, never surfaced to the
// messaging flow.
type Service struct {
	db *database.DB
}

// New runs the schema migration and returns the store.
func New(db *database.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("drafts: database is required")
	}
	if err := db.AutoMigrate(&models.Draft{}); err != nil {
		return nil, fmt.Errorf("drafts: migration failed: %w", err)
	}
	fiberlog.Infof("DraftStore: ready (driver: %s)", db.DriverName())
	return &Service{db: db}, nil
}

// Save persists one draft.
func (s *Service) Save(ctx context.Context, draft *models.Draft) error {
	if err := s.db.WithContext(ctx).Create(draft).Error; err != nil {
		return fmt.Errorf("drafts: save failed: %w", err)
	}
	return nil
}

// List returns drafts newest first, optionally filtered by sender and tone.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]models.Draft, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = defaultListLimit
	}

	query := s.db.WithContext(ctx).Model(&models.Draft{}).Order("created_at DESC").Limit(limit)
	if filter.SenderID != "" {
		query = query.Where("sender_id = ?", filter.SenderID)
	}
	if filter.Tone != "" {
		query = query.Where("tone = ?", filter.Tone)
	}

	var out []models.Draft
	if err := query.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("drafts: list failed: %w", err)
	}
	return out, nil
}

// Count returns the total number of stored drafts.
func (s *Service) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Draft{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("drafts: count failed: %w", err)
	}
	return n, nil
}
