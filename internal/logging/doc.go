// Package logging builds the service's structured logger on log/slog.
//
// Format (json or text), level and destination come from the service
// configuration; every record carries service and version attributes.
package logging
