// Package telemetry groups the observability subsystems of Ganymede:
// structured logging (telemetry/logging) and Prometheus metrics
// (telemetry/metrics).
package telemetry
