// Package web serves the browser front end: a single page to fetch posts
// for a list of usernames, tick the ones to keep and download the table,
// plus a small JSON API over the same browser sessions.
//
// Routes:
//
//	GET  /                  page for the current browser session
//	POST /fetch             run a fetch from the form (replaces the session)
//	POST /select            save the submitted checkboxes as the selection
//	GET  /export.csv        download the export as CSV
//	GET  /export.xlsx       download the export as XLSX
//	POST /api/v1/fetch      JSON fetch
//	PUT  /api/v1/selection  JSON selection replacement
//	GET  /api/v1/session    current session as JSON
//	GET  /api/v1/health     liveness
//
// Browser sessions live in memory only, keyed by the igpicker_session
// cookie, and expire after the configured idle TTL.
package web
