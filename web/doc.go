// Package web serves the question form and a small JSON API on gin.
//
// Routes:
//
//	GET  /         question form titled with the date key
//	POST /         answers the form field "question"
//	POST /api/ask  {"question": "..."} -> {"answer": "..."}
//	GET  /health   liveness
//
// Answering errors are shown to the user with status 500.
package web
