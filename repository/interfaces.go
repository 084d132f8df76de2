package repository

import (
	"context"

	"worshipScheduling/models"
)

// UserStore defines operations on User entities.
type UserStore interface {
	Create(ctx context.Context, u *models.User, instruments []string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context, role string) ([]models.User, error)
	Update(ctx context.Context, id int64, upd UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}

// ScheduleStore defines operations on Schedule entities and their owned rows.
type ScheduleStore interface {
	List(ctx context.Context) ([]models.Schedule, error)
	GetByID(ctx context.Context, id int64) (*models.Schedule, error)
	Create(ctx context.Context, d models.ScheduleDraft) (*models.Schedule, error)
	Replace(ctx context.Context, id int64, d models.ScheduleDraft) (*models.Schedule, error)
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) (int64, error)
	Confirm(ctx context.Context, scheduleID, userID int64) error
	RemoveConfirmation(ctx context.Context, scheduleID, userID int64) error
	RequestChange(ctx context.Context, scheduleID, userID int64, reason string) error
	ResolveChangeRequest(ctx context.Context, scheduleID, userID int64) error
}

var (
	_ UserStore     = (*UserRepository)(nil)
	_ ScheduleStore = (*ScheduleRepository)(nil)
)
