// Package services implements [APIService], the client for the flashcards REST backend.
//
// # Authentication
//
// The backend issues a bearer token from POST /auth/login. [APIService.SetToken] wraps the base
// [http.Client] with an [oauth2] transport backed by a static token source, so every request carries
// the Authorization header without per-call plumbing.
//
// # Rate limiting
//
// An optional [rate.Limiter] paces requests client-side. Callers block in Wait until a token is
// available or the context ends.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : 401 from the backend
//   - [shared.ErrUploadNotFound] : 404 from the backend
//   - [shared.ErrAPIRequest] : transport failure or any other non-2xx status, with the backend's detail message
//   - [shared.ErrInvalidCredentials] : login rejected
//
// # Listing
//
// GET /uploads/ is read as a page object ({"items": [...], "total_pages": n}). Older backends return a
// bare array, which [PaginateLocal] pages and filters on the client.
package services
