// Package coordinator schedules background synchronization cycles.
//
// The coordinator sits on top of sync.Manager and only decides when a cycle
// runs. What a cycle does (fetching, merging, persisting) stays in
// the sync package.
//
// # Schedule
//
// A coordinator starts disabled. Configure installs a ticker with the given
// period, replacing any previous one:
//
//	c := coordinator.New(manager, coordinator.WithNotifier(notifier))
//	c.Configure(ctx, 30*time.Minute)
//	defer c.Stop()
//
// A negative interval disables the schedule and a zero interval is clamped
// to MinInterval. Replacing the schedule only swaps the ticker: a cycle in
// flight keeps running to completion. Stop cancels it. Intervals are usually read from configuration with
// config.ParseInterval.
//
// # Overlap
//
// Each tick calls Manager.Synchronize without force. A tick that fires while
// the previous scheduled cycle is still running is skipped, so at most one
// scheduled cycle is in flight. Manual edits and caller-driven cycles are
// serialized by the manager itself.
//
// # Failures
//
// Nobody awaits a scheduled cycle, so a returned error or a panic is
// published on the notifier failure channel. Per-source failures are part of
// the cycle report and are not published.
package coordinator
