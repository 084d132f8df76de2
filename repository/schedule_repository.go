package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"worshipScheduling/models"
)

// ScheduleRepository persists schedules together with their songs, participations,
// confirmations and change requests.
type ScheduleRepository struct {
	db *gorm.DB
}

// NewScheduleRepository creates a new ScheduleRepository.
func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// withChildren preloads every owned collection; nested rows carry the public user fields.
func withChildren(db *gorm.DB) *gorm.DB {
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id") }
	return db.
		Preload("Songs", func(db *gorm.DB) *gorm.DB { return db.Order("position").Order("id") }).
		Preload("Participations", byID).
		Preload("Participations.User").
		Preload("Confirmations", byID).
		Preload("Confirmations.User").
		Preload("ChangeRequests", byID).
		Preload("ChangeRequests.User")
}

// List returns all schedules, most recent date first.
func (r *ScheduleRepository) List(ctx context.Context) ([]models.Schedule, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out := []models.Schedule{}
	err := withChildren(r.db.WithContext(ctx)).
		Order("schedule_date DESC").
		Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, translate("list schedules", err)
	}
	return out, nil
}

// GetByID returns the schedule with all nested collections, or nil when it does not exist.
func (r *ScheduleRepository) GetByID(ctx context.Context, id int64) (*models.Schedule, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s models.Schedule
	if err := withChildren(r.db.WithContext(ctx)).First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translate("get schedule", err)
	}
	return &s, nil
}

// Exists reports whether schedule id is present.
func (r *ScheduleRepository) Exists(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return exists(r.db.WithContext(ctx), id)
}

func exists(tx *gorm.DB, id int64) (bool, error) {
	var n int64
	if err := tx.Model(&models.Schedule{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, translate("count schedules", err)
	}
	return n > 0, nil
}

// Create inserts the schedule and its songs and participations in one transaction.
func (r *ScheduleRepository) Create(ctx context.Context, d models.ScheduleDraft) (*models.Schedule, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	s := &models.Schedule{
		ScheduleDate: d.ScheduleDate.UTC(),
		Cifras:       d.Cifras,
		PaletaCores:  d.PaletaCores,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(s).Error; err != nil {
			return err
		}
		return insertChildren(tx, s.ID, d)
	})
	if err != nil {
		return nil, translate("create schedule", err)
	}
	return r.GetByID(ctx, s.ID)
}

// Replace overwrites schedule id: existing songs and participations are deleted, scalar
// fields are updated and the draft's songs and participations are inserted, all in one
// transaction. Concurrent replaces are not coordinated; the last one to commit wins.
func (r *ScheduleRepository) Replace(ctx context.Context, id int64, d models.ScheduleDraft) (*models.Schedule, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		if err := tx.Where("schedule_id = ?", id).Delete(&models.Participation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("schedule_id = ?", id).Delete(&models.Song{}).Error; err != nil {
			return err
		}
		fields := map[string]any{
			"schedule_date": d.ScheduleDate.UTC(),
			"updated_at":    time.Now().UTC(),
		}
		if d.Cifras != nil {
			fields["cifras"] = *d.Cifras
		}
		if d.PaletaCores != nil {
			fields["paleta_cores"] = *d.PaletaCores
		}
		if err := tx.Model(&models.Schedule{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return err
		}
		return insertChildren(tx, id, d)
	})
	if err != nil {
		return nil, translate("replace schedule", err)
	}
	return r.GetByID(ctx, id)
}

func insertChildren(tx *gorm.DB, scheduleID int64, d models.ScheduleDraft) error {
	songs := lo.Map(d.Songs, func(s models.SongInput, i int) models.Song {
		return models.Song{ScheduleID: scheduleID, Position: i, SongName: s.SongName, YoutubeLink: s.YoutubeLink}
	})
	if len(songs) > 0 {
		if err := tx.Create(&songs).Error; err != nil {
			return err
		}
	}
	inputs := lo.UniqBy(d.Participations, func(p models.ParticipationInput) string {
		return strconv.FormatInt(p.UserID, 10) + "/" + p.Instrument
	})
	parts := lo.Map(inputs, func(p models.ParticipationInput, _ int) models.Participation {
		return models.Participation{ScheduleID: scheduleID, UserID: p.UserID, Instrument: p.Instrument}
	})
	if len(parts) > 0 {
		if err := tx.Omit(clause.Associations).Create(&parts).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes schedule id and, by cascade, every row it owns.
func (r *ScheduleRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res := r.db.WithContext(ctx).Delete(&models.Schedule{}, id)
	if res.Error != nil {
		return translate("delete schedule", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every schedule and returns how many were deleted.
func (r *ScheduleRepository) DeleteAll(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Schedule{})
	if res.Error != nil {
		return 0, translate("delete all schedules", res.Error)
	}
	return res.RowsAffected, nil
}

// Confirm records that userID attends scheduleID. Confirming again is a no-op.
func (r *ScheduleRepository) Confirm(ctx context.Context, scheduleID, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(tx, scheduleID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "schedule_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).Create(&models.Confirmation{ScheduleID: scheduleID, UserID: userID}).Error
	})
	return translate("confirm", err)
}

// RemoveConfirmation deletes the (scheduleID, userID) confirmation.
func (r *ScheduleRepository) RemoveConfirmation(ctx context.Context, scheduleID, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res := r.db.WithContext(ctx).
		Where("schedule_id = ? AND user_id = ?", scheduleID, userID).
		Delete(&models.Confirmation{})
	if res.Error != nil {
		return translate("remove confirmation", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RequestChange upserts the (scheduleID, userID) change request, overwriting the reason
// and reopening it.
func (r *ScheduleRepository) RequestChange(ctx context.Context, scheduleID, userID int64, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(tx, scheduleID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "schedule_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"reason":     reason,
				"resolved":   false,
				"updated_at": time.Now().UTC(),
			}),
		}).Create(&models.ChangeRequest{ScheduleID: scheduleID, UserID: userID, Reason: reason}).Error
	})
	return translate("request change", err)
}

// ResolveChangeRequest marks the (scheduleID, userID) change request resolved.
func (r *ScheduleRepository) ResolveChangeRequest(ctx context.Context, scheduleID, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cr models.ChangeRequest
		err := tx.Where("schedule_id = ? AND user_id = ?", scheduleID, userID).First(&cr).Error
		if err != nil {
			return err
		}
		return tx.Model(&cr).Updates(map[string]any{"resolved": true, "updated_at": time.Now().UTC()}).Error
	})
	return translate("resolve change request", err)
}
