// Package auth guards the HTTP MCP endpoint.
//
// Two credentials are accepted: a static token (MCP_AUTH_TOKEN) sent as
// X-API-Key or as a bearer token, and an HS256 JWT signed with
// MCP_JWT_SECRET. Stdio mode never authenticates.
package auth
