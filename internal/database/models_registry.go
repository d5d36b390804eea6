package database

import "bazar/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Order matters for AutoMigrate: referenced tables come first.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Listing{},
		&models.Image{},
		&models.Message{},
		&models.Favorite{},
	}
}
