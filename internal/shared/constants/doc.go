// Package constants centralizes defaults shared across the CLI and the web
// server: file permissions, body size limits and outbound timeouts.
package constants
