package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"hms/src/config"
	"hms/src/db"
	"hms/src/lib"
	"hms/src/models"
	"hms/src/types"
	"log"
	"math"
	"sync"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StayRange is a validated, date-truncated UTC check-in/check-out pair.
type StayRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func ParseStayRange(checkIn string, checkOut string) (*StayRange, error) {
	in, err := time.ParseInLocation(config.DATE_PARSE_FORMAT, checkIn, time.UTC)
	if err != nil {
		return nil, types.NewValidationError("InvalidDate", fmt.Sprintf("check_in is not a valid %s date", config.DATE_PARSE_FORMAT))
	}
	out, err := time.ParseInLocation(config.DATE_PARSE_FORMAT, checkOut, time.UTC)
	if err != nil {
		return nil, types.NewValidationError("InvalidDate", fmt.Sprintf("check_out is not a valid %s date", config.DATE_PARSE_FORMAT))
	}
	if !out.After(in) {
		return nil, types.NewValidationError("InvalidDateRange", "check_out must be after check_in")
	}
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if in.Before(today) {
		return nil, types.NewValidationError("PastCheckIn", "check_in must not be in the past")
	}
	return &StayRange{CheckIn: in, CheckOut: out}, nil
}

func ResolvePool(roomType string, hostelType string) (types.RoomType, types.HostelType, error) {
	rt := types.RoomType(roomType)
	if !rt.Valid() {
		return "", "", types.NewValidationError("InvalidRoomType", fmt.Sprintf("unknown room type %q", roomType))
	}
	ht := types.HostelType(hostelType)
	if !ht.Valid() {
		return "", "", types.NewValidationError("InvalidHostelType", fmt.Sprintf("unknown hostel type %q", hostelType))
	}
	return rt, ht, nil
}

// countOverlapping counts active reservations of a pool whose range
// overlaps the stay under inclusive boundaries: a reservation ending the
// day another begins still overlaps.
func countOverlapping(tx *gorm.DB, roomType types.RoomType, hostelType types.HostelType, stay *StayRange) (int64, error) {
	var count int64
	err := tx.
		Model(&models.Reservation{}).
		Where(&models.Reservation{RoomType: roomType, HostelType: hostelType}).
		Where(clause.IN{Column: "status", Values: types.ActiveStatuses()}).
		Where("check_in <= ? AND check_out >= ?", stay.CheckOut, stay.CheckIn).
		Count(&count).
		Error
	return count, err
}

func countActiveForUser(tx *gorm.DB, userId uint) (int64, error) {
	var count int64
	err := tx.
		Model(&models.Reservation{}).
		Where(&models.Reservation{UserID: userId}).
		Where(clause.IN{Column: "status", Values: types.ActiveStatuses()}).
		Count(&count).
		Error
	return count, err
}

// CheckAvailability computes remaining capacity for a pool over a date
// range. Read-only; each active overlapping reservation consumes one unit
// for its whole stay regardless of how much of the query range it covers.
func CheckAvailability(catalog config.CapacityCatalog, roomType string, hostelType string, checkIn string, checkOut string) (*types.AvailabilityStats, error) {
	rt, ht, err := ResolvePool(roomType, hostelType)
	if err != nil {
		return nil, err
	}
	stay, err := ParseStayRange(checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	total, ok := catalog.TotalUnits(rt)
	if !ok {
		return nil, types.NewValidationError("InvalidRoomType", fmt.Sprintf("no capacity configured for room type %q", rt))
	}

	cacheKey := availabilityCacheKey(rt, ht, stay)
	if stats := cachedAvailability(cacheKey); stats != nil {
		return stats, nil
	}

	occupied, err := countOverlapping(db.GetDb(), rt, ht, stay)
	if err != nil {
		return nil, err
	}
	free := uint(0)
	if uint(occupied) < total {
		free = total - uint(occupied)
	}
	stats := &types.AvailabilityStats{
		Available:     free > 0,
		FreeUnits:     free,
		TotalCapacity: total,
		OccupiedUnits: uint(occupied),
	}
	storeAvailability(cacheKey, stats)
	return stats, nil
}

// Pool admission is serialized with per-key advisory locks on postgres,
// held until the transaction commits. Other dialects fall back to a
// process-wide mutex held across the whole transaction.
var admissionMu sync.Mutex

func lockAdmissionKeys(tx *gorm.DB, userId uint, roomType types.RoomType, hostelType types.HostelType) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	// Owner key first, pool key second; every admission locks in this
	// order.
	ownerKey := fmt.Sprintf("admission:user:%d", userId)
	if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", ownerKey).Error; err != nil {
		return err
	}
	poolKey := fmt.Sprintf("admission:pool:%s:%s", roomType, hostelType)
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", poolKey).Error
}

// AdmitReservation validates the request and, in a single transaction
// serialized per owner and per pool, enforces the one-active-reservation
// rule, re-checks availability, and persists a new pending reservation.
func AdmitReservation(catalog config.CapacityCatalog, params *types.CreateReservationRequestBody, userId uint) (*models.Reservation, error) {
	rt, ht, err := ResolvePool(params.RoomType, params.HostelType)
	if err != nil {
		return nil, err
	}
	stay, err := ParseStayRange(params.CheckIn, params.CheckOut)
	if err != nil {
		return nil, err
	}
	total, ok := catalog.TotalUnits(rt)
	if !ok {
		return nil, types.NewValidationError("InvalidRoomType", fmt.Sprintf("no capacity configured for room type %q", rt))
	}
	if params.DurationMonths < 1 {
		return nil, types.NewValidationError("InvalidDuration", "duration_months must be at least 1")
	}

	var reservation models.Reservation
	dbi := db.GetDb()
	if dbi.Dialector.Name() != "postgres" {
		admissionMu.Lock()
		defer admissionMu.Unlock()
	}
	err = dbi.Transaction(func(tx *gorm.DB) error {
		if err := lockAdmissionKeys(tx, userId, rt, ht); err != nil {
			return err
		}

		active, err := countActiveForUser(tx, userId)
		if err != nil {
			return err
		}
		if active > 0 {
			return types.NewConflictError("ActiveReservationExists", "user already holds a pending or confirmed reservation")
		}

		occupied, err := countOverlapping(tx, rt, ht, stay)
		if err != nil {
			return err
		}
		if uint(occupied) >= total {
			return types.NewConflictError("NoAvailability", fmt.Sprintf("no %s rooms available in the %s hostel for the requested dates", rt, ht))
		}

		reservation = models.Reservation{
			UserID:          userId,
			RoomType:        rt,
			HostelType:      ht,
			RoomLabel:       SynthesizeRoomLabel(ht, rt, time.Now()),
			CheckIn:         stay.CheckIn,
			CheckOut:        stay.CheckOut,
			DurationMonths:  params.DurationMonths,
			Status:          types.RESERVATION_PENDING,
			SpecialRequests: params.SpecialRequests,
		}
		if err := tx.Create(&reservation).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	BumpAvailabilityVersion(rt, ht)
	return &reservation, nil
}

// CancelReservation is the owner-side transition: legal from pending or
// confirmed only, and only for the reservation's owner.
func CancelReservation(id uint, ownerId uint, reason string) (*models.Reservation, error) {
	var reservation models.Reservation
	dbi := db.GetDb()
	err := dbi.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.Reservation{ID: id}).First(&reservation).Error; err != nil {
			return types.NewNotFoundError("ReservationNotFound", fmt.Sprintf("reservation [%d] not found", id))
		}
		if reservation.UserID != ownerId {
			return types.NewAuthorizationError("NotOwner", "reservation belongs to another user")
		}
		switch reservation.Status {
		case types.RESERVATION_CANCELLED:
			return types.NewConflictError("AlreadyCancelled", "reservation is already cancelled")
		case types.RESERVATION_COMPLETED:
			return types.NewConflictError("CannotCancelCompleted", "completed reservations cannot be cancelled")
		}
		now := time.Now().UTC()
		return tx.
			Model(&reservation).
			Updates(map[string]any{
				"status":              types.RESERVATION_CANCELLED,
				"cancelled_by":        ownerId,
				"cancelled_at":        now,
				"cancellation_reason": reason,
			}).
			Error
	})
	if err != nil {
		return nil, err
	}

	BumpAvailabilityVersion(reservation.RoomType, reservation.HostelType)
	return &reservation, nil
}

// SetReservationStatus is the admin decision: pending reservations move to
// confirmed or cancelled, nothing else moves at all.
func SetReservationStatus(id uint, adminId uint, newStatus types.ReservationStatus, notes string) (*models.Reservation, error) {
	if newStatus != types.RESERVATION_CONFIRMED && newStatus != types.RESERVATION_CANCELLED {
		return nil, types.NewValidationError("InvalidStatus", fmt.Sprintf("cannot set reservation status to %q", newStatus))
	}
	var reservation models.Reservation
	dbi := db.GetDb()
	err := dbi.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.Reservation{ID: id}).First(&reservation).Error; err != nil {
			return types.NewNotFoundError("ReservationNotFound", fmt.Sprintf("reservation [%d] not found", id))
		}
		if reservation.Status != types.RESERVATION_PENDING {
			return types.NewConflictError("NotPending", fmt.Sprintf("reservation is %s, only pending reservations can be decided", reservation.Status))
		}
		now := time.Now().UTC()
		updates := map[string]any{
			"status":      newStatus,
			"admin_notes": notes,
		}
		if newStatus == types.RESERVATION_CONFIRMED {
			updates["approved_by"] = adminId
			updates["approved_at"] = now
		} else {
			updates["cancelled_by"] = adminId
			updates["cancelled_at"] = now
		}
		return tx.Model(&reservation).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	BumpAvailabilityVersion(reservation.RoomType, reservation.HostelType)
	return &reservation, nil
}

func GetOwnReservations(userId uint) ([]models.Reservation, error) {
	dbi := db.GetDb()
	var reservations []models.Reservation
	err := dbi.
		Model(&models.Reservation{}).
		Where(&models.Reservation{UserID: userId}).
		Order("created_at DESC").
		Find(&reservations).
		Error
	return reservations, err
}

// ListReservations is the admin read side: validated filters, newest
// first, page/limit pagination.
func ListReservations(filter types.ReservationFilter, page int, limit int) ([]models.Reservation, int64, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, 0, types.NewValidationError("InvalidStatus", fmt.Sprintf("unknown status %q", filter.Status))
	}
	if filter.RoomType != "" && !filter.RoomType.Valid() {
		return nil, 0, 0, types.NewValidationError("InvalidRoomType", fmt.Sprintf("unknown room type %q", filter.RoomType))
	}
	if filter.HostelType != "" && !filter.HostelType.Valid() {
		return nil, 0, 0, types.NewValidationError("InvalidHostelType", fmt.Sprintf("unknown hostel type %q", filter.HostelType))
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	dbi := db.GetDb()
	query := dbi.Model(&models.Reservation{}).Where(&models.Reservation{
		UserID:     filter.UserID,
		Status:     filter.Status,
		RoomType:   filter.RoomType,
		HostelType: filter.HostelType,
	}).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, 0, err
	}
	var reservations []models.Reservation
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&reservations).
		Error
	if err != nil {
		return nil, 0, 0, err
	}
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return reservations, total, totalPages, nil
}

// SynthesizeRoomLabel builds a human-readable label like
// "boys-double-174205". The suffix is time-derived and carries no
// uniqueness guarantee; the label is not a physical room assignment.
func SynthesizeRoomLabel(hostelType types.HostelType, roomType types.RoomType, at time.Time) string {
	prefix := slug.Make(fmt.Sprintf("%s %s", hostelType, roomType))
	return fmt.Sprintf("%s-%d", prefix, at.UnixNano()%1_000_000)
}

// Availability responses are cached per pool under a version counter that
// every committed write bumps, so a read issued after a commit never sees
// the pre-write entry. The cache is best-effort: without a redis client all
// reads go straight to the store.

const availabilityCacheTTL = 60 * time.Second

func availabilityCacheKey(roomType types.RoomType, hostelType types.HostelType, stay *StayRange) string {
	rd := lib.GetRedisClient()
	version := "0"
	if rd != nil {
		if v, err := rd.Get(context.Background(), availabilityVersionKey(roomType, hostelType)).Result(); err == nil {
			version = v
		}
	}
	return fmt.Sprintf("availability:%s:%s:v%s:%s:%s",
		roomType, hostelType, version,
		stay.CheckIn.Format(config.DATE_PARSE_FORMAT),
		stay.CheckOut.Format(config.DATE_PARSE_FORMAT))
}

func availabilityVersionKey(roomType types.RoomType, hostelType types.HostelType) string {
	return fmt.Sprintf("availability:%s:%s:ver", roomType, hostelType)
}

func cachedAvailability(key string) *types.AvailabilityStats {
	rd := lib.GetRedisClient()
	if rd == nil {
		return nil
	}
	raw, err := rd.Get(context.Background(), key).Result()
	if err != nil {
		return nil
	}
	var stats types.AvailabilityStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		log.Printf("Error decoding cached availability for %s: %s\n", key, err.Error())
		return nil
	}
	return &stats
}

func storeAvailability(key string, stats *types.AvailabilityStats) {
	rd := lib.GetRedisClient()
	if rd == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := rd.Set(context.Background(), key, raw, availabilityCacheTTL).Err(); err != nil {
		log.Printf("Error caching availability for %s: %s\n", key, err.Error())
	}
}

// BumpAvailabilityVersion invalidates cached availability for a pool.
// Called synchronously after every committed write that touches occupancy.
func BumpAvailabilityVersion(roomType types.RoomType, hostelType types.HostelType) {
	rd := lib.GetRedisClient()
	if rd == nil {
		return
	}
	if err := rd.Incr(context.Background(), availabilityVersionKey(roomType, hostelType)).Err(); err != nil {
		log.Printf("Error bumping availability version for %s/%s: %s\n", roomType, hostelType, err.Error())
	}
}
