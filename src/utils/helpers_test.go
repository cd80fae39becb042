package utils

import (
	"fmt"
	"hms/src/config"
	"hms/src/db"
	"hms/src/models"
	"hms/src/types"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	d, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening test database: %s", err.Error())
	}
	sqlDB, err := d.DB()
	if err != nil {
		log.Fatalf("error accessing test database: %s", err.Error())
	}
	sqlDB.SetMaxOpenConns(1)
	if err := d.AutoMigrate(&models.User{}, &models.Reservation{}); err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}
	testDB = d
	db.NewDB(d)
	os.Exit(m.Run())
}

func resetLedger(t *testing.T) {
	t.Helper()
	require.NoError(t, testDB.Exec("DELETE FROM reservations").Error)
}

func seedUser(t *testing.T, name string) uint {
	t.Helper()
	user := models.User{Name: name, Email: fmt.Sprintf("%s@example.com", name)}
	require.NoError(t, testDB.Create(&user).Error)
	return user.ID
}

func futureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format(config.DATE_PARSE_FORMAT)
}

func testCatalog() config.CapacityCatalog {
	return config.DefaultCapacities()
}

func newRequest(roomType types.RoomType, hostelType types.HostelType, inDays int, outDays int) *types.CreateReservationRequestBody {
	return &types.CreateReservationRequestBody{
		RoomType:       string(roomType),
		HostelType:     string(hostelType),
		CheckIn:        futureDate(inDays),
		CheckOut:       futureDate(outDays),
		DurationMonths: 1,
	}
}

func assertAppError(t *testing.T, err error, kind types.ErrorKind, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*types.AppError)
	require.Truef(t, ok, "expected *types.AppError, got %T: %v", err, err)
	assert.Equal(t, kind, appErr.Kind)
	assert.Equal(t, code, appErr.Code)
}

func TestParseStayRange(t *testing.T) {
	stay, err := ParseStayRange(futureDate(10), futureDate(40))
	require.NoError(t, err)
	assert.True(t, stay.CheckOut.After(stay.CheckIn))

	_, err = ParseStayRange(futureDate(40), futureDate(10))
	assertAppError(t, err, types.ERR_VALIDATION, "InvalidDateRange")

	_, err = ParseStayRange(futureDate(10), futureDate(10))
	assertAppError(t, err, types.ERR_VALIDATION, "InvalidDateRange")

	_, err = ParseStayRange(futureDate(-1), futureDate(10))
	assertAppError(t, err, types.ERR_VALIDATION, "PastCheckIn")

	_, err = ParseStayRange("06/01/2030", futureDate(10))
	assertAppError(t, err, types.ERR_VALIDATION, "InvalidDate")

	// Today is a legal check-in day.
	_, err = ParseStayRange(futureDate(0), futureDate(5))
	assert.NoError(t, err)
}

func TestResolvePool(t *testing.T) {
	rt, ht, err := ResolvePool("double", "girls")
	require.NoError(t, err)
	assert.Equal(t, types.ROOM_DOUBLE, rt)
	assert.Equal(t, types.HOSTEL_GIRLS, ht)

	_, _, err = ResolvePool("penthouse", "girls")
	assertAppError(t, err, types.ERR_VALIDATION, "InvalidRoomType")

	_, _, err = ResolvePool("double", "coed")
	assertAppError(t, err, types.ERR_VALIDATION, "InvalidHostelType")
}

func TestSynthesizeRoomLabel(t *testing.T) {
	at := time.Date(2030, 6, 1, 12, 0, 0, 123456, time.UTC)
	label := SynthesizeRoomLabel(types.HOSTEL_GIRLS, types.ROOM_FOURTH, at)
	assert.Equal(t, fmt.Sprintf("girls-fourth-%d", at.UnixNano()%1_000_000), label)
}

func TestCheckAvailabilityEmptyPool(t *testing.T) {
	resetLedger(t)

	stats, err := CheckAvailability(testCatalog(), "double", "boys", futureDate(30), futureDate(60))
	require.NoError(t, err)
	assert.True(t, stats.Available)
	assert.Equal(t, uint(15), stats.FreeUnits)
	assert.Equal(t, uint(15), stats.TotalCapacity)
	assert.Equal(t, uint(0), stats.OccupiedUnits)
}

func TestCheckAvailabilityValidation(t *testing.T) {
	_, err := CheckAvailability(testCatalog(), "double", "boys", futureDate(60), futureDate(30))
	assertAppError(t, err, types.ERR_VALIDATION, "InvalidDateRange")

	_, err = CheckAvailability(testCatalog(), "triple", "boys", futureDate(30), futureDate(60))
	assertAppError(t, err, types.ERR_VALIDATION, "InvalidRoomType")
}

func TestAdmissionConsumesCapacity(t *testing.T) {
	resetLedger(t)
	userId := seedUser(t, "consumes-capacity")

	reservation, err := AdmitReservation(testCatalog(), newRequest(types.ROOM_DOUBLE, types.HOSTEL_BOYS, 30, 60), userId)
	require.NoError(t, err)
	assert.Equal(t, types.RESERVATION_PENDING, reservation.Status)
	assert.Equal(t, userId, reservation.UserID)
	assert.Contains(t, reservation.RoomLabel, "boys-double-")

	stats, err := CheckAvailability(testCatalog(), "double", "boys", futureDate(30), futureDate(60))
	require.NoError(t, err)
	assert.Equal(t, uint(1), stats.OccupiedUnits)
	assert.Equal(t, uint(14), stats.FreeUnits)
	assert.True(t, stats.Available)
}

func TestOverlapBoundaryInclusive(t *testing.T) {
	resetLedger(t)
	userId := seedUser(t, "boundary")

	// Stay covering days 30..60.
	_, err := AdmitReservation(testCatalog(), newRequest(types.ROOM_SINGLE, types.HOSTEL_GIRLS, 30, 60), userId)
	require.NoError(t, err)

	// A query starting exactly on the existing check-out day overlaps.
	stats, err := CheckAvailability(testCatalog(), "single", "girls", futureDate(60), futureDate(90))
	require.NoError(t, err)
	assert.Equal(t, uint(1), stats.OccupiedUnits)

	// A query ending exactly on the existing check-in day overlaps.
	stats, err = CheckAvailability(testCatalog(), "single", "girls", futureDate(10), futureDate(30))
	require.NoError(t, err)
	assert.Equal(t, uint(1), stats.OccupiedUnits)

	// A disjoint later range does not.
	stats, err = CheckAvailability(testCatalog(), "single", "girls", futureDate(61), futureDate(90))
	require.NoError(t, err)
	assert.Equal(t, uint(0), stats.OccupiedUnits)

	// The whole stay counts as one unit no matter how small the overlap.
	stats, err = CheckAvailability(testCatalog(), "single", "girls", futureDate(59), futureDate(61))
	require.NoError(t, err)
	assert.Equal(t, uint(1), stats.OccupiedUnits)
}

func TestSingleActiveReservationPerUser(t *testing.T) {
	resetLedger(t)
	userId := seedUser(t, "single-active")

	_, err := AdmitReservation(testCatalog(), newRequest(types.ROOM_DOUBLE, types.HOSTEL_GIRLS, 30, 60), userId)
	require.NoError(t, err)

	// A second admission is rejected even for a different pool and range.
	_, err = AdmitReservation(testCatalog(), newRequest(types.ROOM_SIXTH, types.HOSTEL_GIRLS, 90, 120), userId)
	assertAppError(t, err, types.ERR_CONFLICT, "ActiveReservationExists")

	var count int64
	require.NoError(t, testDB.Model(&models.Reservation{}).Where("user_id = ?", userId).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCapacityExhaustion(t *testing.T) {
	resetLedger(t)
	catalog := config.CapacityCatalog{types.ROOM_DOUBLE: 2}

	for i := 0; i < 2; i++ {
		userId := seedUser(t, fmt.Sprintf("exhaust-%d", i))
		_, err := AdmitReservation(catalog, newRequest(types.ROOM_DOUBLE, types.HOSTEL_BOYS, 30, 60), userId)
		require.NoError(t, err)
	}

	userId := seedUser(t, "exhaust-overflow")
	_, err := AdmitReservation(catalog, newRequest(types.ROOM_DOUBLE, types.HOSTEL_BOYS, 45, 75), userId)
	assertAppError(t, err, types.ERR_CONFLICT, "NoAvailability")

	// The girls pool shares the same capacity number but counts its own
	// reservations.
	stats, err := CheckAvailability(catalog, "double", "girls", futureDate(30), futureDate(60))
	require.NoError(t, err)
	assert.Equal(t, uint(2), stats.FreeUnits)
}

func TestConcurrentAdmissionsDoNotOversell(t *testing.T) {
	resetLedger(t)
	catalog := config.CapacityCatalog{types.ROOM_DOUBLE: 15}

	userIds := make([]uint, 20)
	for i := range userIds {
		userIds[i] = seedUser(t, fmt.Sprintf("concurrent-%d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, len(userIds))
	for i, userId := range userIds {
		wg.Add(1)
		go func(i int, userId uint) {
			defer wg.Done()
			_, errs[i] = AdmitReservation(catalog, newRequest(types.ROOM_DOUBLE, types.HOSTEL_BOYS, 30, 60), userId)
		}(i, userId)
	}
	wg.Wait()

	admitted := 0
	for _, err := range errs {
		if err == nil {
			admitted++
			continue
		}
		assertAppError(t, err, types.ERR_CONFLICT, "NoAvailability")
	}
	assert.Equal(t, 15, admitted)

	stats, err := CheckAvailability(catalog, "double", "boys", futureDate(30), futureDate(60))
	require.NoError(t, err)
	assert.Equal(t, uint(15), stats.OccupiedUnits)
	assert.Equal(t, uint(0), stats.FreeUnits)
	assert.False(t, stats.Available)
}

func TestCancelReservation(t *testing.T) {
	resetLedger(t)
	ownerId := seedUser(t, "cancel-owner")
	strangerId := seedUser(t, "cancel-stranger")

	reservation, err := AdmitReservation(testCatalog(), newRequest(types.ROOM_FOURTH, types.HOSTEL_BOYS, 30, 60), ownerId)
	require.NoError(t, err)

	_, err = CancelReservation(reservation.ID, strangerId, "not mine")
	assertAppError(t, err, types.ERR_AUTHORIZATION, "NotOwner")

	cancelled, err := CancelReservation(reservation.ID, ownerId, "changed plans")
	require.NoError(t, err)
	assert.Equal(t, types.RESERVATION_CANCELLED, cancelled.Status)
	assert.Equal(t, "changed plans", cancelled.CancellationReason)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, ownerId, *cancelled.CancelledBy)
	assert.NotNil(t, cancelled.CancelledAt)

	// Cancelling again is rejected and leaves the record untouched.
	_, err = CancelReservation(reservation.ID, ownerId, "again")
	assertAppError(t, err, types.ERR_CONFLICT, "AlreadyCancelled")

	var stored models.Reservation
	require.NoError(t, testDB.First(&stored, reservation.ID).Error)
	assert.Equal(t, "changed plans", stored.CancellationReason)

	_, err = CancelReservation(99999, ownerId, "ghost")
	assertAppError(t, err, types.ERR_NOT_FOUND, "ReservationNotFound")
}

func TestCancelCompletedReservation(t *testing.T) {
	resetLedger(t)
	ownerId := seedUser(t, "cancel-completed")

	reservation, err := AdmitReservation(testCatalog(), newRequest(types.ROOM_FOURTH, types.HOSTEL_GIRLS, 30, 60), ownerId)
	require.NoError(t, err)
	require.NoError(t, testDB.Model(&models.Reservation{}).Where("id = ?", reservation.ID).Update("status", types.RESERVATION_COMPLETED).Error)

	_, err = CancelReservation(reservation.ID, ownerId, "too late")
	assertAppError(t, err, types.ERR_CONFLICT, "CannotCancelCompleted")
}

func TestCancelFreesCapacity(t *testing.T) {
	resetLedger(t)
	catalog := config.CapacityCatalog{types.ROOM_SINGLE: 1}
	firstId := seedUser(t, "frees-first")
	secondId := seedUser(t, "frees-second")

	reservation, err := AdmitReservation(catalog, newRequest(types.ROOM_SINGLE, types.HOSTEL_BOYS, 30, 60), firstId)
	require.NoError(t, err)

	_, err = AdmitReservation(catalog, newRequest(types.ROOM_SINGLE, types.HOSTEL_BOYS, 30, 60), secondId)
	assertAppError(t, err, types.ERR_CONFLICT, "NoAvailability")

	_, err = CancelReservation(reservation.ID, firstId, "making room")
	require.NoError(t, err)

	_, err = AdmitReservation(catalog, newRequest(types.ROOM_SINGLE, types.HOSTEL_BOYS, 30, 60), secondId)
	assert.NoError(t, err)
}

func TestSetReservationStatus(t *testing.T) {
	resetLedger(t)
	ownerId := seedUser(t, "decide-owner")
	adminId := seedUser(t, "decide-admin")

	reservation, err := AdmitReservation(testCatalog(), newRequest(types.ROOM_SIXTH, types.HOSTEL_BOYS, 30, 60), ownerId)
	require.NoError(t, err)

	_, err = SetReservationStatus(reservation.ID, adminId, types.RESERVATION_COMPLETED, "")
	assertAppError(t, err, types.ERR_VALIDATION, "InvalidStatus")

	_, err = SetReservationStatus(reservation.ID, adminId, "approved", "")
	assertAppError(t, err, types.ERR_VALIDATION, "InvalidStatus")

	confirmed, err := SetReservationStatus(reservation.ID, adminId, types.RESERVATION_CONFIRMED, "room inspected")
	require.NoError(t, err)
	assert.Equal(t, types.RESERVATION_CONFIRMED, confirmed.Status)
	assert.Equal(t, "room inspected", confirmed.AdminNotes)
	require.NotNil(t, confirmed.ApprovedBy)
	assert.Equal(t, adminId, *confirmed.ApprovedBy)
	assert.NotNil(t, confirmed.ApprovedAt)

	// Only pending reservations can be decided.
	_, err = SetReservationStatus(reservation.ID, adminId, types.RESERVATION_CANCELLED, "")
	assertAppError(t, err, types.ERR_CONFLICT, "NotPending")

	_, err = SetReservationStatus(99999, adminId, types.RESERVATION_CONFIRMED, "")
	assertAppError(t, err, types.ERR_NOT_FOUND, "ReservationNotFound")
}

func TestAdminRejectionRecordsDecision(t *testing.T) {
	resetLedger(t)
	ownerId := seedUser(t, "reject-owner")
	adminId := seedUser(t, "reject-admin")

	reservation, err := AdmitReservation(testCatalog(), newRequest(types.ROOM_SIXTH, types.HOSTEL_GIRLS, 30, 60), ownerId)
	require.NoError(t, err)

	rejected, err := SetReservationStatus(reservation.ID, adminId, types.RESERVATION_CANCELLED, "over quota")
	require.NoError(t, err)
	assert.Equal(t, types.RESERVATION_CANCELLED, rejected.Status)
	assert.Equal(t, "over quota", rejected.AdminNotes)
	require.NotNil(t, rejected.CancelledBy)
	assert.Equal(t, adminId, *rejected.CancelledBy)
	assert.Nil(t, rejected.ApprovedBy)
}

func TestListReservations(t *testing.T) {
	resetLedger(t)
	catalog := testCatalog()
	for i := 0; i < 5; i++ {
		userId := seedUser(t, fmt.Sprintf("list-%d", i))
		pool := types.HOSTEL_BOYS
		if i%2 == 1 {
			pool = types.HOSTEL_GIRLS
		}
		_, err := AdmitReservation(catalog, newRequest(types.ROOM_DOUBLE, pool, 30+i, 60+i), userId)
		require.NoError(t, err)
	}

	items, total, totalPages, err := ListReservations(types.ReservationFilter{}, 1, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.EqualValues(t, 5, total)
	assert.Equal(t, 3, totalPages)

	items, total, totalPages, err = ListReservations(types.ReservationFilter{HostelType: types.HOSTEL_GIRLS}, 1, 10)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, 1, totalPages)

	items, _, _, err = ListReservations(types.ReservationFilter{Status: types.RESERVATION_CANCELLED}, 1, 10)
	require.NoError(t, err)
	assert.Len(t, items, 0)

	_, _, _, err = ListReservations(types.ReservationFilter{Status: "limbo"}, 1, 10)
	assertAppError(t, err, types.ERR_VALIDATION, "InvalidStatus")
}
