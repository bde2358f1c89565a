package domain

import "time"

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
)

// Live reports whether the status still occupies its slots.
func (s ReservationStatus) Live() bool {
	return s == ReservationPending || s == ReservationConfirmed || s == ReservationCompleted
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// MaxDurationHours caps a single booking.
const MaxDurationHours = 12

// Reservation is a claim on one resource for a contiguous run of hours.
type Reservation struct {
	ID              string
	ResourceID      string
	RequesterID     string
	Date            time.Time
	StartTime       ClockTime
	DurationHours   int
	Status          ReservationStatus
	PaymentStatus   PaymentStatus
	TotalPrice      int64
	EquipmentRental bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r Reservation) EndTime() ClockTime {
	return r.StartTime.Add(r.DurationHours * SlotLength)
}

// Hours lists the slot starts the reservation occupies.
func (r Reservation) Hours() []ClockTime {
	out := make([]ClockTime, 0, r.DurationHours)
	for i := 0; i < r.DurationHours; i++ {
		out = append(out, r.StartTime.Add(i*SlotLength))
	}
	return out
}

// Claims expands the reservation into its per-hour slot claims.
func (r Reservation) Claims() []SlotClaim {
	hours := r.Hours()
	out := make([]SlotClaim, 0, len(hours))
	for _, h := range hours {
		out = append(out, SlotClaim{
			ResourceID:    r.ResourceID,
			Date:          r.Date,
			StartTime:     h,
			ReservationID: r.ID,
		})
	}
	return out
}
