package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/models"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/plans"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuotaChecker decides whether a user may hold proposed units of resource.
type QuotaChecker interface {
	Allow(ctx context.Context, userID uuid.UUID, resource string, proposed int) (bool, error)
}

// Preferences are the per-user notification settings this service reads.
type Preferences struct {
	Email     string
	Timezone  string
	AlertDays *int
	Currency  string
}

type PreferencesProvider interface {
	Preferences(ctx context.Context, userID uuid.UUID) (*Preferences, error)
	ForUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*Preferences, error)
}

// UserPreferenceStore reads preferences from the users table. Unknown users
// get zero preferences (UTC, default alert window).
type UserPreferenceStore struct {
	db *gorm.DB
}

func NewUserPreferenceStore(db *gorm.DB) *UserPreferenceStore {
	return &UserPreferenceStore{db: db}
}

func (s *UserPreferenceStore) Preferences(ctx context.Context, userID uuid.UUID) (*Preferences, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Preferences{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user preferences: %w", err)
	}
	return preferencesOf(&user), nil
}

func (s *UserPreferenceStore) ForUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]*Preferences, error) {
	result := make(map[uuid.UUID]*Preferences, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load user preferences: %w", err)
	}
	for i := range users {
		result[users[i].ID] = preferencesOf(&users[i])
	}
	return result, nil
}

func preferencesOf(u *models.User) *Preferences {
	return &Preferences{
		Email:     u.Email,
		Timezone:  u.Timezone,
		AlertDays: u.AlertDays,
		Currency:  u.Currency,
	}
}

// PlanQuota checks limits from the plan registry against the user's plan.
type PlanQuota struct {
	db       *gorm.DB
	registry *plans.Registry
}

func NewPlanQuota(db *gorm.DB, registry *plans.Registry) *PlanQuota {
	return &PlanQuota{db: db, registry: registry}
}

func (q *PlanQuota) Allow(ctx context.Context, userID uuid.UUID, resource string, proposed int) (bool, error) {
	var user models.User
	planID := ""
	err := q.db.WithContext(ctx).Select("plan").First(&user, "id = ?", userID).Error
	switch {
	case err == nil:
		planID = user.Plan
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, fmt.Errorf("failed to load plan: %w", err)
	}
	return q.registry.Allows(planID, resource, proposed), nil
}
