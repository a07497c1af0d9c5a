// Package calendar reads events from the Google Calendar API (calendar/v3).
//
// Only the primary calendar is queried. Window supplies the default time range
// (now to now plus seven days) when the caller leaves a bound empty.
package calendar
