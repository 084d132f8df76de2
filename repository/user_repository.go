package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"worshipScheduling/models"
)

// RoleAll disables the role filter in List.
const RoleAll = "all"

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UserUpdate carries the fields of a user update. Nil pointers and a nil Instruments
// slice leave the stored value untouched; PasswordHash must already be hashed.
type UserUpdate struct {
	Name         string
	Username     string
	Email        *string
	PasswordHash *string
	Role         *models.Role
	Instruments  []string
}

// NormalizeInstruments trims and upper-cases names, dropping blanks and duplicates.
func NormalizeInstruments(in []string) []string {
	out := lo.FilterMap(in, func(s string, _ int) (string, bool) {
		s = strings.ToUpper(strings.TrimSpace(s))
		return s, s != ""
	})
	return lo.Uniq(out)
}

// Create inserts u together with its instruments in one transaction.
// Role defaults to musician.
func (r *UserRepository) Create(ctx context.Context, u *models.User, instruments []string) (*models.User, error) {
	if u == nil {
		return nil, errors.New("user is nil")
	}
	if u.Role == "" {
		u.Role = models.RoleMusician
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Instruments").Create(u).Error; err != nil {
			return err
		}
		rows := instrumentRows(u.ID, instruments)
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		u.Instruments = rows
		return nil
	})
	if err != nil {
		return nil, translate("create user", err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u models.User
	err := r.db.WithContext(ctx).Preload("Instruments").First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translate("get user", err)
	}
	return &u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translate("get user by username", err)
	}
	return &u, nil
}

// List returns users ordered by name with their instruments. An empty role means
// musicians only; RoleAll returns everyone.
func (r *UserRepository) List(ctx context.Context, role string) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	q := r.db.WithContext(ctx).Preload("Instruments", func(db *gorm.DB) *gorm.DB {
		return db.Order("instrument")
	})
	switch role {
	case RoleAll:
	case "":
		q = q.Where("role = ?", models.RoleMusician)
	default:
		q = q.Where("role = ?", role)
	}
	out := []models.User{}
	if err := q.Order("name").Order("id").Find(&out).Error; err != nil {
		return nil, translate("list users", err)
	}
	return out, nil
}

// Update applies upd to user id. When upd.Instruments is non-nil the user's instruments
// are replaced in the same transaction.
func (r *UserRepository) Update(ctx context.Context, id int64, upd UserUpdate) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		fields := map[string]any{
			"name":       upd.Name,
			"username":   upd.Username,
			"email":      upd.Email,
			"updated_at": time.Now().UTC(),
		}
		if upd.PasswordHash != nil {
			fields["password"] = *upd.PasswordHash
		}
		if upd.Role != nil {
			fields["role"] = string(*upd.Role)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return err
		}
		if upd.Instruments == nil {
			return nil
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.UserInstrument{}).Error; err != nil {
			return err
		}
		rows := instrumentRows(id, upd.Instruments)
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, translate("update user", err)
	}
	return r.GetByID(ctx, id)
}

// Delete removes the user; instruments, participations, confirmations and change
// requests go with it through ON DELETE CASCADE.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return translate("delete user", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureAdmin creates u as an admin unless a user with the same username exists, in
// which case u is overwritten with the stored row. It reports whether a row was inserted.
func (r *UserRepository) EnsureAdmin(ctx context.Context, u *models.User) (bool, error) {
	existing, err := r.GetByUsername(ctx, u.Username)
	if err != nil {
		return false, err
	}
	if existing != nil {
		*u = *existing
		return false, nil
	}
	u.Role = models.RoleAdmin
	if _, err := r.Create(ctx, u, nil); err != nil {
		return false, err
	}
	return true, nil
}

func instrumentRows(userID int64, names []string) []models.UserInstrument {
	return lo.Map(NormalizeInstruments(names), func(name string, _ int) models.UserInstrument {
		return models.UserInstrument{UserID: userID, Instrument: name}
	})
}
