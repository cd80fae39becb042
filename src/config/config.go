package config

import (
	"encoding/json"
	"fmt"
	"hms/src/types"
	"log"
	"os"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const DATE_PARSE_FORMAT = "2006-01-02"

// CapacityCatalog maps a room type to its total reservable units. Boys and
// girls pools of the same room type share one number.
type CapacityCatalog map[types.RoomType]uint

func DefaultCapacities() CapacityCatalog {
	return CapacityCatalog{
		types.ROOM_SINGLE: 10,
		types.ROOM_DOUBLE: 15,
		types.ROOM_FOURTH: 20,
		types.ROOM_SIXTH:  25,
	}
}

// GetCapacities returns the capacity catalog. The ROOM_CAPACITIES env var
// (a JSON object like {"double":30}) overrides individual defaults.
func GetCapacities() CapacityCatalog {
	catalog := DefaultCapacities()
	raw := os.Getenv("ROOM_CAPACITIES")
	if raw == "" {
		return catalog
	}
	var overrides map[string]uint
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		log.Printf("Error parsing ROOM_CAPACITIES, using defaults: %s\n", err.Error())
		return catalog
	}
	for k, v := range overrides {
		rt := types.RoomType(k)
		if _, ok := catalog[rt]; !ok {
			log.Printf("Ignoring capacity override for unknown room type %q\n", k)
			continue
		}
		catalog[rt] = v
	}
	return catalog
}

func (c CapacityCatalog) TotalUnits(roomType types.RoomType) (uint, bool) {
	units, ok := c[roomType]
	return units, ok
}
