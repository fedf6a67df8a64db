// Package model holds the bell domain records: ring schedules and mute
// windows, plus the partial-update patches and field validation applied at the
// mutation boundary.
package model
