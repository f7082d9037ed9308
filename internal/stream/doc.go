// Package stream owns the live push channel of a session.
//
// A [Manager] keeps at most one logical channel open at a time. It opens channels through a [Dialer],
// forwards open, message and error notifications to a [Handler], and reconnects after a fixed delay when
// the transport fails. Teardown is deterministic: after [Manager.Close] no handler method is called again.
//
// [HTTPDialer] is the production transport, a Server-Sent Events client over net/http.
package stream
