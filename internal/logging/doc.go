// Package logging configures log/slog output for the pipeline.
//
// Two formats are supported: a console handler that renders
// "timestamp LEVEL component: message key=value" lines, and a JSON handler
// for machine consumption. Helper constructors mirror slog's attribute
// functions so call sites stay terse, and context helpers derive standard
// run/stage/correlation fields from a request context.
package logging
