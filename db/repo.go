package db

import (
	"context"
	"errors"
	"strings"

	"library-lending/models"
	"library-lending/permissions"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Repo struct{ DB *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{DB: db} }

var (
	ErrEmailTaken       = errors.New("user with this email already exists")
	ErrOverrideExists   = errors.New("permission override for this token already exists, delete it first to change the effect")
	ErrOverrideMismatch = errors.New("override does not belong to this user")

	// ErrTransient surfaces a store-level serialization conflict that did not
	// resolve after one internal retry; callers may repeat the request.
	ErrTransient = errors.New("temporary storage conflict, retry the request")
)

// isSerializationFailure matches SQLSTATE 40001 (serialization_failure) and
// 40P01 (deadlock_detected).
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}

// withRetry runs fn and repeats it once with the original inputs when the
// store reports a serialization conflict.
func (r *Repo) withRetry(fn func() error) error {
	err := fn()
	if err != nil && isSerializationFailure(err) {
		err = fn()
	}
	if err != nil && isSerializationFailure(err) {
		return ErrTransient
	}
	return err
}

// Users

func (r *Repo) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	err := r.DB.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	return err
}

// FindUserByID loads the user with permission overrides preloaded.
func (r *Repo) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Preload("Overrides").First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := r.DB.WithContext(ctx).Preload("Overrides").Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) SaveUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	err := r.DB.WithContext(ctx).Save(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	return err
}

func (r *Repo) TouchUserSeen(ctx context.Context, userID string) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_seen_at", gorm.Expr("NOW()")).Error
}

type UserQuery struct {
	Q        string // matches email or full name
	Role     string
	IsActive *bool
	Page     int
	Size     int
}

type ListUsersResult struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
}

func (r *Repo) ListUsers(ctx context.Context, q UserQuery) (ListUsersResult, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 1000 {
		q.Size = 100
	}

	tx := r.DB.WithContext(ctx).Model(&models.User{})
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", like, like)
	}
	if q.Role != "" {
		tx = tx.Where("role = ?", q.Role)
	}
	if q.IsActive != nil {
		tx = tx.Where("is_active = ?", *q.IsActive)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListUsersResult{}, err
	}

	var users []models.User
	if err := tx.
		Order("email ASC").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Find(&users).Error; err != nil {
		return ListUsersResult{}, err
	}
	return ListUsersResult{Users: users, Total: total}, nil
}

// DeleteUserByID removes the user and, explicitly, their overrides.
func (r *Repo) DeleteUserByID(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.PermissionOverride{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{ID: id})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// Permission overrides

func (r *Repo) ListOverrides(ctx context.Context, userID string) ([]models.PermissionOverride, error) {
	var out []models.PermissionOverride
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// AddOverride creates an override; a second override for the same token on
// the same user is rejected.
func (r *Repo) AddOverride(ctx context.Context, userID, permission string, effect permissions.Effect) (*models.PermissionOverride, error) {
	var ov *models.PermissionOverride
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.PermissionOverride{}).
			Where("user_id = ? AND permission = ?", userID, permission).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrOverrideExists
		}
		ov = &models.PermissionOverride{
			ID:         uuid.NewString(),
			UserID:     userID,
			Permission: permission,
			Effect:     effect,
		}
		return tx.Create(ov).Error
	})
	if err != nil {
		return nil, err
	}
	return ov, nil
}

func (r *Repo) DeleteOverride(ctx context.Context, userID, overrideID string) error {
	var ov models.PermissionOverride
	if err := r.DB.WithContext(ctx).First(&ov, "id = ?", overrideID).Error; err != nil {
		return err
	}
	if ov.UserID != userID {
		return ErrOverrideMismatch
	}
	return r.DB.WithContext(ctx).Delete(&ov).Error
}
