// Package api is the low-level client for the platform's web API.
//
// Each Fetch method maps to one endpoint and returns the decoded envelope
// {success, code, msg, data}. Every call is a JSON POST carrying the
// session cookies, a fixed set of browser headers and the x-s, x-s-common
// and x-t values produced by a Signer for that exact endpoint and payload.
//
// Non-200 statuses become typed errors from pkg/errors. A 200 response with
// success=false becomes an ErrorTypeAPI error carrying the platform's code
// and message, except for the login-expired and too-frequent codes, which
// are reported as auth and rate_limit errors respectively.
//
// Pagination and record reshaping live one level up, in pkg/xhs.
package api
