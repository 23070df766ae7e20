// Package secret resolves API key values that point somewhere else.
//
// A configured value is first expanded strictly against the environment
// (see ExpandEnvStrict). If the result names a registered provider it is
// resolved through that provider:
//   - env:DATA_GO_KR_API_KEY_PROD reads another environment variable
//   - file:/run/secrets/onbid_key reads a mounted secret file
//
// Anything else is returned as the literal key.
package secret
