// Package harness provides utilities for integration testing the gitsmart CLI.
// It handles binary compilation, environment isolation, and command execution.
//
// Environment variables managed:
//   - GITSMART_HOME: Isolated per test (temp directory)
//   - GITSMART_DEBUG: Disabled to reduce noise
//   - GITSMART_API_TOKEN: Dummy token so no real credentials leak in
package harness
