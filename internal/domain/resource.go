package domain

// Resource is a bookable field. Catalog management owns it; the booking core only reads it.
type Resource struct {
	ID           string
	Name         string
	HourlyPrice  int64
	EquipmentFee int64
	Active       bool
}

// Price returns the total for a booking of hours, in minor units.
func (r Resource) Price(hours int, equipmentRental bool) int64 {
	total := r.HourlyPrice * int64(hours)
	if equipmentRental {
		total += r.EquipmentFee
	}
	return total
}
