package repository

import (
	"context"

	"riverwatch/internal/model"

	"gorm.io/gorm"
)

type RoleRepository interface {
	FindByCode(ctx context.Context, code string) (*model.Role, error)
	ListAll(ctx context.Context) ([]model.Role, error)
	Seed(ctx context.Context, roles []model.Role) error
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) FindByCode(ctx context.Context, code string) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Where("code = ?", code).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) ListAll(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := GetDB(ctx, r.db).Order("code asc").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// Seed inserts any built-in roles missing from the table. Existing rows
// are left untouched.
func (r *roleRepository) Seed(ctx context.Context, roles []model.Role) error {
	for i := range roles {
		if err := GetDB(ctx, r.db).
			Where("code = ?", roles[i].Code).
			FirstOrCreate(&roles[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
