package utils

import "time"

func Now() time.Time {
	return time.Now().UTC()
}

// DatePath renders t as yyyy/mm/dd in UTC.
func DatePath(t time.Time) string {
	return t.UTC().Format("2006/01/02")
}
