// Package errs classifies the error kinds a shard or voice connection can
// raise, per the recovery policy described for the gateway runtime: every
// kind recovers locally except SessionFatal and programmer errors, which
// are surfaced to the owning cluster.
package errs

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Kind is one of the error classifications the runtime recovers from (or doesn't).
type Kind int

const (
	// KindTransport covers DNS, TCP, TLS handshake, and unexpected EOF failures.
	KindTransport Kind = iota
	// KindProtocol covers malformed websocket frames, unknown opcodes, inflate errors.
	KindProtocol
	// KindSessionFatal covers close codes the gateway will never let us resume from.
	KindSessionFatal
	// KindSessionRecoverable covers every other server close code.
	KindSessionRecoverable
	// KindZombied means the heartbeat ACK is overdue.
	KindZombied
	// KindVoiceSetupIncomplete means endpoint/token/session_id did not all
	// arrive within the configured deadline.
	KindVoiceSetupIncomplete
	// KindHandlerDropped means an event's required cache reference was nil.
	KindHandlerDropped
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindSessionFatal:
		return "session_fatal"
	case KindSessionRecoverable:
		return "session_recoverable"
	case KindZombied:
		return "zombied"
	case KindVoiceSetupIncomplete:
		return "voice_setup_incomplete"
	case KindHandlerDropped:
		return "handler_dropped"
	default:
		return "unknown"
	}
}

// classified wraps a cause with a Kind, exposing errors.Is/As through Unwrap.
type classified struct {
	kind  Kind
	cause error
}

func (c *classified) Error() string {
	return c.kind.String() + ": " + c.cause.Error()
}

func (c *classified) Unwrap() error {
	return c.cause
}

// Wrap attaches a Kind to cause, preserving the chain for errors.Is/As.
// Uses pkg/errors so the classified error also carries a stack trace at the
// point of first classification, which is where these are almost always
// logged from.
func Wrap(kind Kind, cause error) error {
	if cause == nil {
		return nil
	}
	return &classified{kind: kind, cause: pkgerrors.WithStack(cause)}
}

// New builds a classified error from a message, with a stack trace attached.
func New(kind Kind, msg string) error {
	return &classified{kind: kind, cause: pkgerrors.New(msg)}
}

// KindOf extracts the Kind from err, if it (or something it wraps) is classified.
func KindOf(err error) (Kind, bool) {
	var c *classified
	if errors.As(err, &c) {
		return c.kind, true
	}
	return 0, false
}

// Is reports whether err is classified with exactly kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// ErrDeprecatedKind is returned by the interaction response builder when
// asked to encode ir_acknowledge or ir_channel_message: accepted for parse,
// rejected for send.
var ErrDeprecatedKind = pkgerrors.New("interaction response kind is deprecated for sending")
