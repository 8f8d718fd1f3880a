package booking

import "time"

const day = 24 * time.Hour

// Nights counts billable nights: partial days round up and any stay costs at
// least one night.
func Nights(checkIn, checkOut time.Time) int64 {
	d := checkOut.Sub(checkIn)
	n := int64(d / day)
	if d%day != 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}

func TotalPrice(pricePerNight int64, checkIn, checkOut time.Time) int64 {
	return pricePerNight * Nights(checkIn, checkOut)
}
