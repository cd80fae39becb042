package config

import (
	"hms/src/types"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultCapacities(t *testing.T) {
	catalog := GetCapacities()

	assert.Equal(t, uint(10), catalog[types.ROOM_SINGLE])
	assert.Equal(t, uint(15), catalog[types.ROOM_DOUBLE])
	assert.Equal(t, uint(20), catalog[types.ROOM_FOURTH])
	assert.Equal(t, uint(25), catalog[types.ROOM_SIXTH])
}

func TestCapacityOverrides(t *testing.T) {
	os.Setenv("ROOM_CAPACITIES", `{"double": 30, "attic": 5}`)
	defer os.Unsetenv("ROOM_CAPACITIES")

	catalog := GetCapacities()

	assert.Equal(t, uint(30), catalog[types.ROOM_DOUBLE])
	assert.Equal(t, uint(10), catalog[types.ROOM_SINGLE])
	// Unknown room types are ignored, not added.
	_, ok := catalog.TotalUnits(types.RoomType("attic"))
	assert.False(t, ok)
}

func TestCapacityOverridesBadJSON(t *testing.T) {
	os.Setenv("ROOM_CAPACITIES", "not-json")
	defer os.Unsetenv("ROOM_CAPACITIES")

	catalog := GetCapacities()

	assert.Equal(t, DefaultCapacities(), catalog)
}

func TestTotalUnits(t *testing.T) {
	catalog := DefaultCapacities()

	units, ok := catalog.TotalUnits(types.ROOM_SIXTH)
	assert.True(t, ok)
	assert.Equal(t, uint(25), units)

	_, ok = catalog.TotalUnits(types.RoomType("suite"))
	assert.False(t, ok)
}
