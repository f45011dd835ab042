package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/thebtf/notekeeper/internal/storage"
	"github.com/thebtf/notekeeper/pkg/models"
)

// InsertReminder stores r.
func (s *Store) InsertReminder(ctx context.Context, r *models.Reminder) error {
	if err := s.DB.WithContext(ctx).Create(reminderRow(r)).Error; err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

func (s *Store) findReminders(ctx context.Context, query string, args ...any) ([]*models.Reminder, error) {
	var rows []Reminder
	if err := s.DB.WithContext(ctx).Where(query, args...).Order("due_at_epoch, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return reminderModels(rows), nil
}

// FindRemindersDue returns all owners' reminders due at or before now.
func (s *Store) FindRemindersDue(ctx context.Context, now time.Time) ([]*models.Reminder, error) {
	out, err := s.findReminders(ctx, "due_at_epoch <= ?", now.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("find due reminders: %w", err)
	}
	return out, nil
}

// FindRemindersInRange returns owner's reminders with start <= due < end.
func (s *Store) FindRemindersInRange(ctx context.Context, owner models.OwnerID, start, end time.Time) ([]*models.Reminder, error) {
	out, err := s.findReminders(ctx, "owner_id = ? AND due_at_epoch >= ? AND due_at_epoch < ?",
		int64(owner), start.UTC().UnixMilli(), end.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("find reminders in range: %w", err)
	}
	return out, nil
}

// FindRemindersBefore returns owner's reminders due strictly before t.
func (s *Store) FindRemindersBefore(ctx context.Context, owner models.OwnerID, t time.Time) ([]*models.Reminder, error) {
	out, err := s.findReminders(ctx, "owner_id = ? AND due_at_epoch < ?", int64(owner), t.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("find past reminders: %w", err)
	}
	return out, nil
}

// ReminderByID returns owner's reminder id or storage.ErrNotFound.
func (s *Store) ReminderByID(ctx context.Context, owner models.OwnerID, id string) (*models.Reminder, error) {
	var row Reminder
	err := s.DB.WithContext(ctx).Where("owner_id = ? AND id = ?", int64(owner), id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reminder %s: %w", id, err)
	}
	return row.model(), nil
}

// DeleteReminder removes owner's reminders whose body is exactly body.
func (s *Store) DeleteReminder(ctx context.Context, owner models.OwnerID, body string) (int64, error) {
	res := s.DB.WithContext(ctx).Where("owner_id = ? AND body = ?", int64(owner), body).Delete(&Reminder{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete reminder: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteReminderByID removes owner's reminder id.
func (s *Store) DeleteReminderByID(ctx context.Context, owner models.OwnerID, id string) (int64, error) {
	res := s.DB.WithContext(ctx).Where("owner_id = ? AND id = ?", int64(owner), id).Delete(&Reminder{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete reminder %s: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

// ReplaceReminder deletes oldID and inserts r atomically.
func (s *Store) ReplaceReminder(ctx context.Context, owner models.OwnerID, oldID string, r *models.Reminder) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ? AND id = ?", int64(owner), oldID).Delete(&Reminder{}).Error; err != nil {
			return err
		}
		return tx.Create(reminderRow(r)).Error
	})
	if err != nil {
		return fmt.Errorf("replace reminder %s: %w", oldID, err)
	}
	return nil
}

// Stats counts stored records. Overdue counts reminders due at or before now.
func (s *Store) Stats(ctx context.Context, now time.Time) (*models.Stats, error) {
	var st models.Stats
	err := s.DB.WithContext(ctx).Raw(`
		SELECT
			(SELECT COUNT(*) FROM notes) AS notes,
			(SELECT COUNT(*) FROM reminders) AS reminders,
			(SELECT COUNT(*) FROM (SELECT owner_id FROM notes UNION SELECT owner_id FROM reminders) o) AS owners,
			(SELECT COUNT(*) FROM reminders WHERE due_at_epoch <= ?) AS overdue
	`, now.UTC().UnixMilli()).Scan(&st).Error
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &st, nil
}
