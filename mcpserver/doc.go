// Package mcpserver exposes the real estate operations as MCP tools.
//
// Every tool answers with one JSON text block. Failures are the JSON form
// of a toolerr.Envelope with IsError set, so clients always get a kind, a
// message and a suggestion. Panics inside a tool become internal_error.
//
// Run serves stdio; Handler builds the chi router used in HTTP mode.
package mcpserver
