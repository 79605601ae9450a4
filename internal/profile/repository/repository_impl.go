package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/atrium/internal/profile/domain"
	"github.com/smallbiznis/atrium/pkg/db"
	"gorm.io/gorm"
)

type store struct {
	db *gorm.DB
}

// New builds the gorm-backed profile store.
func New(conn *gorm.DB) domain.Store {
	return &store{db: conn}
}

func (s *store) GetByID(ctx context.Context, id snowflake.ID) (*domain.Profile, error) {
	var profile domain.Profile
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (s *store) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.Profile, error) {
	var profile domain.Profile
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", username, email).
		First(&profile).Error
	if err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (s *store) List(ctx context.Context, timeout time.Duration) ([]domain.Profile, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var profiles []domain.Profile
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&profiles).Error
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.ErrListTimeout
		}
		return nil, translate(err)
	}
	return profiles, nil
}

func (s *store) Insert(ctx context.Context, profile *domain.Profile) (*domain.Profile, error) {
	if err := s.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, translate(err)
	}
	return profile, nil
}

func (s *store) Update(ctx context.Context, id snowflake.ID, fields map[string]any) (*domain.Profile, error) {
	fields["updated_at"] = time.Now().UTC()

	tx := s.db.WithContext(ctx).Model(&domain.Profile{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return nil, translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, domain.ErrProfileNotFound
	}

	return s.GetByID(ctx, id)
}

func (s *store) Delete(ctx context.Context, id snowflake.ID) error {
	tx := s.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Profile{})
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (s *store) TouchLastLogin(ctx context.Context, id snowflake.ID, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("id = ?", id).
		Updates(map[string]any{"last_login_at": at, "updated_at": at}).
		Error
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrProfileNotFound
	case db.IsDuplicateKeyErr(err):
		return domain.ErrProfileExists
	case db.IsPermissionDeniedErr(err):
		return domain.ErrPermissionDenied
	default:
		return err
	}
}
