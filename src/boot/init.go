package boot

import (
	"hms/src/db"
	"hms/src/models"
	"log"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	dbi := db.GetDb()

	err := dbi.AutoMigrate(
		&models.User{},
		&models.Reservation{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return dbi
}
