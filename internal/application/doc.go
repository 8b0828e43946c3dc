// Package application provides application initialization and dependency wiring.
// It builds the shared cdntags.Tags from configuration, the page renderer,
// the API router, and the HTTP server, keeping the main package focused on
// CLI parsing and orchestration.
package application
