package database

import (
	"context"
	"errors"

	"github.com/chxlky/trello-timers/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists run history, mutation events and tracked timer cards.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) SaveRun(ctx context.Context, run *models.RunRecord) error {
	return s.DB.WithContext(ctx).Save(run).Error
}

func (s *Store) RecentRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.RunRecord
	err := s.DB.WithContext(ctx).Order("started_at desc").Limit(limit).Find(&runs).Error
	return runs, err
}

// RecordEvent appends the event and, for timer-card actions, upserts the
// card's tracked state.
func (s *Store) RecordEvent(ctx context.Context, ev models.Event) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := models.EventRecord{
			Timestamp: ev.Timestamp,
			CardID:    ev.CardID,
			CardName:  ev.CardName,
			Action:    string(ev.Action),
			Cadence:   ev.Cadence,
			Category:  ev.Category,
			ListID:    ev.ListID,
			Due:       ev.Due,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		if ev.Cadence == "" {
			return nil
		}

		card := models.TrackedCard{ID: ev.CardID, Name: ev.CardName, URL: ev.CardURL, Cadence: ev.Cadence}
		updates := []string{"name", "url", "cadence", "updated_at"}
		switch ev.Action {
		case models.ActionUnarchive:
			ts := ev.Timestamp
			card.LastRevivedAt = &ts
			updates = append(updates, "last_revived_at")
		case models.ActionDueReset:
			card.DueDate = ev.Due
			updates = append(updates, "due_date")
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(updates),
		}).Create(&card).Error
	})
}

func (s *Store) TrackedCard(ctx context.Context, cardID string) (*models.TrackedCard, error) {
	var card models.TrackedCard
	err := s.DB.WithContext(ctx).First(&card, "id = ?", cardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// EventID returns the calendar event linked to the card, or "".
func (s *Store) EventID(ctx context.Context, cardID string) (string, error) {
	card, err := s.TrackedCard(ctx, cardID)
	if err != nil || card == nil {
		return "", err
	}
	return card.EventID, nil
}

func (s *Store) LinkEvent(ctx context.Context, cardID, eventID string) error {
	card := models.TrackedCard{ID: cardID, EventID: eventID}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"event_id", "updated_at"}),
	}).Create(&card).Error
}
