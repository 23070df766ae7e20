// Package toolerr defines the error envelope returned to MCP clients and
// the classifier that maps Go errors onto it.
//
// Every failure a tool can report falls into exactly one of six kinds:
// config_error, invalid_input, network_error, api_error, parse_error and
// internal_error. Each envelope carries a message and a suggestion the
// calling model can act on.
package toolerr
