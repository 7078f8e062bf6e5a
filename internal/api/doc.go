// Package api implements the HTTP REST API and WebSocket event stream for
// devicehub.
//
// All device routes live under /api/v1:
//
//	POST   /devices            create (201, ETag = version token)
//	GET    /devices            short listing {devices, count}
//	GET    /devices/details    detailed listing {devices, count}
//	GET    /devices/export     detailed listing as an xlsx workbook
//	GET    /devices/{id}       one device (ETag = version token)
//	PUT    /devices/{id}       optimistic update (204, ETag = new token)
//	DELETE /devices/{id}       delete (204, 404 when absent)
//	GET    /ws                 device event stream
//	GET    /status             uptime, device counts per type, pool and link state
//	GET    /health, /ready     liveness and database readiness
//
// Prometheus metrics are served at /metrics outside the versioned prefix.
//
// # Concurrency control
//
// PUT requires the version token last read, either as the body's base64
// version_token or as an If-Match header. A stale token yields 409 with
// code "version_conflict"; clients re-read and retry.
//
// # Security
//
// When security.jwt.enabled is set, device routes and /ws require an HS256
// bearer token. Viewers may read; admins may also mutate. WebSocket clients
// may pass the token as the "token" query parameter.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
