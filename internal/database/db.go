package database

import (
	"log"

	"riverwatch/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.Role{},
		&model.Area{},
		&model.User{},
		&model.UserSession{},
		&model.AreaMaintenanceWorker{},
		&model.Device{},
		&model.Alarm{},
		&model.WorkOrder{},
		&model.WorkOrderStatusHistory{},
		&model.Notification{},
		&model.OperationLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
