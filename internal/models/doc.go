// Package models defines domain entities and persistence interfaces for the cardx client.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs mirroring the REST and push channel payloads
//   - [Upload] : A PDF processing job as returned by the listing endpoint
//   - [StatusEvent] : One decoded status notification from the push channel
//   - [UploadPage] : One page of the server-side paginated listing
//   - [UploadText], [UploadResult], [Card], [User] : Detail, creation, flashcard and account payloads
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Credential] : A saved login (bearer token) for one server
//
// All persistent entities implement the Model interface providing ID generation, timestamps and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
