// Package relay implements the request-forwarding core: the attempt loop
// that sends a client request to the inference backend, classifies each
// attempt's outcome, and drives retries with exponential backoff.
//
// The control flow is an explicit tagged-outcome loop:
//
//	attempt -> classify -> decide -> act
//
// Classification (Classify) and the retry decision (Policy.Decide) are pure
// functions, so the retry behavior is unit-testable without a network. The
// Forwarder owns per-request state only; everything shared across requests
// (health state, metrics) lives behind its own synchronization in the
// backend and telemetry packages.
package relay
