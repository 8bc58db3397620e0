// Package api is the dashboard's authentication HTTP surface, built on chi.
//
// Routes, relative to the engine mount path:
//
//	GET  {mount}login   CSRF token and one-shot error message as JSON
//	POST {mount}login   form login; CSRF checked before credentials
//	GET  {mount}logout  destroys the session and clears its cookie
//	GET  {mount}apps    managed apps the session identity may open
//	GET  /health        session store reachability
//	GET  /metrics       Prometheus exposition when metrics are enabled
package api
