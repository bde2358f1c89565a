package domain

import "time"

// AvailabilityTemplate is a recurring daily window over an inclusive date range.
type AvailabilityTemplate struct {
	ID         string
	ResourceID string
	From       time.Time
	To         time.Time
	StartTime  ClockTime
	EndTime    ClockTime
	Available  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks the window is well formed and aligned to the slot length.
func (t AvailabilityTemplate) Validate() error {
	if t.From.IsZero() || t.To.IsZero() || t.To.Before(t.From) {
		return ErrInvalidDate
	}
	if !t.StartTime.Aligned() || !t.EndTime.Aligned() || t.StartTime >= t.EndTime {
		return ErrInvalidWindow
	}
	return nil
}

// Covers reports whether date falls inside the template's range.
func (t AvailabilityTemplate) Covers(date time.Time) bool {
	date = NormalizeDate(date)
	return !date.Before(NormalizeDate(t.From)) && !date.After(NormalizeDate(t.To))
}

// Overlaps reports whether both templates can produce the same (date, start) slot.
func (t AvailabilityTemplate) Overlaps(o AvailabilityTemplate) bool {
	if t.ResourceID != o.ResourceID {
		return false
	}
	if t.To.Before(o.From) || o.To.Before(t.From) {
		return false
	}
	return t.StartTime < o.EndTime && o.StartTime < t.EndTime
}

// Starts lists the slot start times inside the daily window.
func (t AvailabilityTemplate) Starts() []ClockTime {
	var out []ClockTime
	for s := t.StartTime; s.Add(SlotLength) <= t.EndTime; s = s.Add(SlotLength) {
		out = append(out, s)
	}
	return out
}

// Supersedes reports whether t wins over o when both cover the same slot.
// The most recently modified template wins.
func (t AvailabilityTemplate) Supersedes(o AvailabilityTemplate) bool {
	if !t.UpdatedAt.Equal(o.UpdatedAt) {
		return t.UpdatedAt.After(o.UpdatedAt)
	}
	if !t.CreatedAt.Equal(o.CreatedAt) {
		return t.CreatedAt.After(o.CreatedAt)
	}
	return t.ID > o.ID
}

// Closure makes one resource, or every resource when ResourceID is nil,
// unbookable for a whole date.
type Closure struct {
	ID         string
	Date       time.Time
	ResourceID *string
	Reason     string
	CreatedBy  string
	CreatedAt  time.Time
}

func (c Closure) Applies(resourceID string) bool {
	return c.ResourceID == nil || *c.ResourceID == resourceID
}

// SlotDescriptor is one resolved hour of availability.
type SlotDescriptor struct {
	Date      time.Time
	StartTime ClockTime
	EndTime   ClockTime
	Available bool
}

// SlotClaim marks one hour held by a live reservation.
type SlotClaim struct {
	ResourceID    string
	Date          time.Time
	StartTime     ClockTime
	ReservationID string
}
