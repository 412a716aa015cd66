// Package server provides HTTP routing, middleware, and the pack building API used by `discpack serve`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Middleware
//
//   - [Recover] converts handler panics into 500 responses
//   - [Logging] writes one charmbracelet/log line per request
//   - [RateLimit] applies a token bucket from golang.org/x/time/rate and answers 429 with Retry-After
//   - [MaxBody] caps uploads with [http.MaxBytesReader]; oversized uploads answer 413
//
// # Routes
//
//	GET  /health       → {"status":"ok"}
//	GET  /api/slots    → slot catalog (?format=json|yaml|csv|text)
//	POST /api/preview  → assignment preview for multipart "tracks"
//	POST /api/build    → the .mcpack as an attachment, or a JSON summary with ?format=json
//
// Build requests accept the form fields name, description, version ("1.2.3") and no_icon, plus an optional
// "icon" file. When more tracks are uploaded than there are slots, the extras are dropped and the
// X-Discpack-Warning header says so.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
// [PackAPI] is registered this way.
package server
