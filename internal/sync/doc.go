// Package sync owns the canonical media type registry and keeps it in step
// with the upstream sources.
//
// # Core Interfaces
//
//   - Manager: synchronizes the registry with its sources and applies manual edits
//
// # Synchronization
//
// Manager.Synchronize probes every enabled source concurrently. A source is
// fetched when forced, when it exposes a version token different from the
// last accepted one, or when no token was ever accepted. Sources are joined
// with a settle-all strategy: a failing source is recorded in the cycle
// report and contributes nothing, the others proceed.
//
// Accepted fragments are merged in configured source order. Only genuinely
// new associations make it into the returned Delta. The snapshot is persisted
// when the delta is non-empty or a version token changed, and change
// subscribers are notified when the delta is non-empty.
//
// # Manual Edits
//
// SetOne and DeleteOne validate both arguments and report every violation
// at once. Every mutation runs under a single lock on a copy of the state;
// the copy replaces the live state only after it has been persisted, so a
// persistence failure leaves the registry unchanged and is returned to the
// caller.
//
// The coordinator subpackage runs Synchronize on a schedule.
package sync
