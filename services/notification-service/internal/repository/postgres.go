package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Doetheman/community-platform-template/services/notification-service/internal/domain"
)

type PostgresRepo struct{ db *gorm.DB }

func NewPostgresRepo(db *gorm.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.User{})
}

func (r *PostgresRepo) SubscribedUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := r.db.WithContext(ctx).Where("notifications_enabled = ?", true).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("query subscribed users: %w", err)
	}
	return users, nil
}
