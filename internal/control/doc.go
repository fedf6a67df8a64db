// Package control is the single mutation boundary for the bell: record
// CRUD, manual mute, overrides and manual rings all pass through Service.
//
// Schedule writes and the trigger rebuild they cause happen under one lock,
// so the scheduler never holds a trigger for a schedule that no longer
// exists.
package control
