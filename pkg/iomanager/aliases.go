package iomanager

import (
	"github.com/eser/iomanager/pkg/iomanager/connid"
)

// Re-exported so callers only need to import this one package for the
// fabric's identity/config types and error taxonomy.
type (
	ConnectionId     = connid.ConnectionId
	ConnectionConfig = connid.ConnectionConfig
	ConnectionKind   = connid.ConnectionKind
	QueueConfig      = connid.QueueConfig
	QueueVariant     = connid.QueueVariant
)

const (
	ConnectionKindSendRecv = connid.ConnectionKindSendRecv
	ConnectionKindPubSub   = connid.ConnectionKindPubSub

	QueueVariantDeque = connid.QueueVariantDeque
	QueueVariantSPSC  = connid.QueueVariantSPSC
	QueueVariantMPMC  = connid.QueueVariantMPMC
)

// Error taxonomy, re-exported for callers that only import this package.
var (
	ErrTimeoutExpired     = connid.ErrTimeoutExpired
	ErrConnectionNotFound = connid.ErrConnectionNotFound
	ErrNameCollision      = connid.ErrNameCollision
	ErrTypeMismatch       = connid.ErrTypeMismatch
	ErrNotSerializable    = connid.ErrNotSerializable
	ErrCallbackConflict   = connid.ErrCallbackConflict
	ErrCrossSession       = connid.ErrCrossSession
	ErrAlreadyConfigured  = connid.ErrAlreadyConfigured
	ErrNotConfigured      = connid.ErrNotConfigured
	ErrLookupFailed       = connid.ErrLookupFailed
	ErrPublishFailed      = connid.ErrPublishFailed
	ErrRetractFailed      = connid.ErrRetractFailed
	ErrQueueTypeUnknown   = connid.ErrQueueTypeUnknown
	ErrNotReady           = connid.ErrNotReady
	ErrPartitionNotSet    = connid.ErrPartitionNotSet
)

// NewConnectionId builds a ConnectionId from its three components.
func NewConnectionId(uid, dataType, session string) ConnectionId {
	return connid.NewConnectionId(uid, dataType, session)
}

// ParseConnectionKind accepts "send-recv" (default) and "pub-sub", their
// hyphen/underscore variants.
func ParseConnectionKind(raw string) (ConnectionKind, error) {
	return connid.ParseConnectionKind(raw)
}

// ParseQueueVariant accepts short, prefixed, and full queue-variant names.
func ParseQueueVariant(raw string) (QueueVariant, error) {
	return connid.ParseQueueVariant(raw)
}
