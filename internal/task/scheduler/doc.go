// Package scheduler fires compiled ring triggers on time.
//
// robfig/cron is used only as the timer substrate: each calendar.Trigger is
// registered as a cron.Schedule. On every firing the scheduler re-checks the
// catch-up grace period, records the firing and hands the ring to the
// executor. It never runs a ring sequence itself.
package scheduler
