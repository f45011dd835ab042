package gorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/thebtf/notekeeper/internal/storage"
	"github.com/thebtf/notekeeper/pkg/models"
)

// InsertNote stores n.
func (s *Store) InsertNote(ctx context.Context, n *models.Note) error {
	if err := s.DB.WithContext(ctx).Create(noteRow(n)).Error; err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// FindNotes returns owner's notes with tag, or all notes when tag is empty.
func (s *Store) FindNotes(ctx context.Context, owner models.OwnerID, tag string) ([]*models.Note, error) {
	q := s.DB.WithContext(ctx).Where("owner_id = ?", int64(owner))
	if tag != "" {
		q = q.Where("tag = ?", models.NormalizeTag(tag))
	}

	var rows []Note
	if err := q.Order("created_at_epoch, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find notes: %w", err)
	}
	return noteModels(rows), nil
}

// ListTags returns owner's distinct non-empty tags.
func (s *Store) ListTags(ctx context.Context, owner models.OwnerID) ([]string, error) {
	var tags []string
	err := s.DB.WithContext(ctx).
		Model(&Note{}).
		Where("owner_id = ? AND tag <> ''", int64(owner)).
		Distinct("tag").
		Order("tag").
		Pluck("tag", &tags).Error
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// NoteByID returns owner's note id or storage.ErrNotFound.
func (s *Store) NoteByID(ctx context.Context, owner models.OwnerID, id string) (*models.Note, error) {
	var row Note
	err := s.DB.WithContext(ctx).Where("owner_id = ? AND id = ?", int64(owner), id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("note %s: %w", id, err)
	}
	return row.model(), nil
}

// DeleteNote removes owner's notes whose body is exactly body.
func (s *Store) DeleteNote(ctx context.Context, owner models.OwnerID, body string) (int64, error) {
	res := s.DB.WithContext(ctx).Where("owner_id = ? AND body = ?", int64(owner), body).Delete(&Note{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete note: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteNoteByID removes owner's note id.
func (s *Store) DeleteNoteByID(ctx context.Context, owner models.OwnerID, id string) (int64, error) {
	res := s.DB.WithContext(ctx).Where("owner_id = ? AND id = ?", int64(owner), id).Delete(&Note{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete note %s: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

// ReplaceNote deletes oldID and inserts n atomically.
func (s *Store) ReplaceNote(ctx context.Context, owner models.OwnerID, oldID string, n *models.Note) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ? AND id = ?", int64(owner), oldID).Delete(&Note{}).Error; err != nil {
			return err
		}
		return tx.Create(noteRow(n)).Error
	})
	if err != nil {
		return fmt.Errorf("replace note %s: %w", oldID, err)
	}
	return nil
}
