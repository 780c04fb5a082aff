// Package api implements the HTTP REST API and WebSocket server for Smooth Lights.
//
// This package provides:
//   - Config flow endpoints to set up and reconfigure the integration
//   - Config entry endpoints to inspect, reload and remove it
//   - A service call endpoint that dispatches through the service registry
//   - A WebSocket hub broadcasting service.called and entry.updated events
//   - A read-only audit trail of entry changes
//
// # Security
//
// Every endpoint except health, login, metrics and the WebSocket upgrade
// requires a bearer JWT issued by POST /api/v1/auth/login. The password is
// checked against the argon2id hash in security.auth.admin_password_hash.
// WebSocket connections use single-use tickets so the token never appears
// in a URL.
//
// The server follows the same lifecycle as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
