// Mercator Ganymede is a resilience relay for OpenAI-compatible inference
// backends.
//
// It sits between clients and a single inference backend (Ollama, vLLM, or
// any OpenAI-compatible server), relaying requests byte-for-byte while
// adding automatic retries with exponential backoff, backend health
// probing, and Prometheus metrics.
//
// Usage:
//
//	# Start the relay with default configuration
//	ganymede run
//
//	# Start with a custom configuration file
//	ganymede run --config /etc/ganymede/config.yaml
//
//	# Validate a configuration file without starting
//	ganymede validate --config /etc/ganymede/config.yaml
//
//	# Show version information
//	ganymede version
package main

func main() {
	Execute()
}
