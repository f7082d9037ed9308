// Package events decodes raw push channel frames into [models.StatusEvent] values.
//
// A frame is the data payload of one Server-Sent Event or a comment line. Decoding never fails loudly:
//   - empty frames and ":" comments (heartbeats) are ignored, see [ErrHeartbeat]
//   - frames that are not JSON or miss required fields are ignored and logged, see [ErrMalformed]
//
// Structural checks use a JSON schema (see [FrameSchema]); enum values for status and type are
// trusted from the server and passed through unchanged.
package events
