// app/bootstrap.go
package app

import (
	"context"
	"errors"
	"log"

	"library-lending/auth"
	"library-lending/db"
	"library-lending/models"
	"library-lending/permissions"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BootstrapFirstSuperuser seeds the first superuser from env when absent.
func BootstrapFirstSuperuser(ctx context.Context, cfg Config, repo *db.Repo) {
	if cfg.FirstSuperuserEmail == "" {
		return
	}

	_, err := repo.FindUserByEmail(ctx, cfg.FirstSuperuserEmail)
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("bootstrap superuser lookup failed: %v", err)
		return
	}

	hash, err := auth.HashPassword(cfg.FirstSuperuserPassword)
	if err != nil {
		log.Printf("bootstrap superuser hash failed: %v", err)
		return
	}
	u := &models.User{
		ID:             uuid.NewString(),
		Email:          cfg.FirstSuperuserEmail,
		HashedPassword: hash,
		Role:           permissions.RoleLibrarian,
		IsSuperuser:    true,
		IsActive:       true,
	}
	if err := repo.CreateUser(ctx, u); err != nil {
		log.Printf("bootstrap superuser create failed: %v", err)
		return
	}
	log.Printf("[BOOTSTRAP] created first superuser %s", u.Email)
}
