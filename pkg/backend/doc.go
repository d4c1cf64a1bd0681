// Package backend implements the HTTP client for the single configured
// inference backend and the background health probe that tracks its
// reachability.
//
// The client performs exactly one backend call per invocation; retry
// orchestration belongs to the relay layer, which classifies each call's
// outcome and drives the backoff loop. Keeping the client single-shot makes
// the retry policy directly testable and keeps the two concerns from
// entangling.
//
// The probe is a two-state machine (healthy/unhealthy) driven by a fixed
// interval ticker. It shares no code path with request handling; the two
// communicate only through the atomically updated HealthState.
package backend
