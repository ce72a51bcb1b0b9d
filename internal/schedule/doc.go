// Package schedule drives periodic remaining-time checks for the watch command.
//
// A schedule is either a cron expression (robfig/cron, seconds optional) or a
// fixed interval. Interval schedules get a bounded random delay before their
// first run so that many tasks of the same job do not hit the scheduler at the
// same instant.
package schedule
