// Package integration provides end to end tests for media type registry
// synchronization. They exercise HTTP, file and Git sources, snapshot
// persistence across restarts and the periodic scheduler.
package integration
