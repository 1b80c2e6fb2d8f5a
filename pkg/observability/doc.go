/*
Package observability turns lifecycle events into structured logs and
Prometheus metrics.

Hooks built here plug into conversation.WithLifecycleHooks; the HTTP
middleware and tree gauge are used by the collaborator server.
*/
package observability
