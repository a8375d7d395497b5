package services

import "time"

const serviceDateLayout = "2006-01-02"

// serviceLocation is the mess's local timezone; service dates and reminder
// schedules are anchored to it regardless of server locale.
var serviceLocation = mustLoadLocation("Asia/Kolkata")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Today returns the current service date string.
func Today() string {
	return time.Now().In(serviceLocation).Format(serviceDateLayout)
}

// endOfServiceDay is the expiry deadline for tokens created on date.
func endOfServiceDay(date string) time.Time {
	d, err := time.ParseInLocation(serviceDateLayout, date, serviceLocation)
	if err != nil {
		d = time.Now().In(serviceLocation)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, serviceLocation)
}

func validServiceDate(date string) bool {
	_, err := time.ParseInLocation(serviceDateLayout, date, serviceLocation)
	return err == nil
}
