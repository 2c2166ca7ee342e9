// Package providers defines the adapter surface shared by every AI
// translation backend: the closed provider kind set, the request and
// tagged-result types, configuration schemas, and the per-attempt retry
// backoff shared by the concrete adapters.
package providers
