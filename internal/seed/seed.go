// Package seed makes a fresh installation usable: one staff login and a
// small demo catalog to click around with.
package seed

import (
	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/propoza/internal/account/domain"
	"github.com/smallbiznis/propoza/internal/actorcontext"
	"github.com/smallbiznis/propoza/internal/auth"
	catalogdomain "github.com/smallbiznis/propoza/internal/catalog/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultStaffUsername = "admin"
	defaultStaffPassword = "admin123"
)

// EnsureDefaultStaff creates the bootstrap staff account when no staff
// exists yet. The generated credentials are for first login only and must
// be rotated.
func EnsureDefaultStaff(db *gorm.DB, genID *snowflake.Node, log *zap.Logger) error {
	var count int64
	if err := db.Model(&accountdomain.User{}).
		Where("role = ?", actorcontext.RoleStaff).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(defaultStaffPassword)
	if err != nil {
		return err
	}
	staff := accountdomain.User{
		ID:           genID.Generate(),
		Username:     defaultStaffUsername,
		FullName:     "Administrator",
		Role:         actorcontext.RoleStaff,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := db.Create(&staff).Error; err != nil {
		return err
	}
	log.Warn("created bootstrap staff account, rotate the password",
		zap.String("username", defaultStaffUsername),
	)
	return nil
}

// EnsureDemoCatalog seeds a starter catalog on an empty database.
func EnsureDemoCatalog(db *gorm.DB, genID *snowflake.Node) error {
	var count int64
	if err := db.Model(&catalogdomain.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	entries := []struct {
		category string
		services []catalogdomain.Service
	}{
		{
			category: "Entertainment",
			services: []catalogdomain.Service{
				{Name: "Live band", Unit: "set", BasePrice: price(45000), Repeatable: true},
				{Name: "DJ", Unit: "hour", BasePrice: price(8000), Repeatable: true},
				{Name: "Host", Unit: "event", BasePrice: price(30000), Repeatable: false},
			},
		},
		{
			category: "Production",
			services: []catalogdomain.Service{
				{Name: "Stage light", Unit: "kit", BasePrice: price(15000), Repeatable: true},
				{Name: "Sound system", Unit: "kit", BasePrice: price(20000), Repeatable: false},
			},
		},
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for i, entry := range entries {
			category := catalogdomain.Category{
				ID:        genID.Generate(),
				Name:      entry.category,
				SortOrder: i,
				IsActive:  true,
			}
			if err := tx.Create(&category).Error; err != nil {
				return err
			}
			for j := range entry.services {
				svc := entry.services[j]
				svc.ID = genID.Generate()
				svc.CategoryID = category.ID
				svc.SortOrder = j
				svc.IsActive = true
				if err := tx.Create(&svc).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func price(v int64) *int64 { return &v }
