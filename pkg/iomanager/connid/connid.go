package connid

import (
	"fmt"
	"regexp"
	"strings"
)

// ConnectionId is the structural name of an endpoint: a (uid, data_type,
// session) triple. When used as a query (e.g. in directory resolution), uid
// is matched as a regular expression against candidate uids.
type ConnectionId struct {
	UID      string
	DataType string
	Session  string
}

// NewConnectionId builds a ConnectionId from its three components.
func NewConnectionId(uid, dataType, session string) ConnectionId {
	return ConnectionId{UID: uid, DataType: dataType, Session: session}
}

func (id ConnectionId) String() string {
	session := id.Session
	if session == "" {
		session = "*"
	}

	return fmt.Sprintf("%s/%s@%s", id.UID, id.DataType, session)
}

// Equal compares two identifiers the way the fabric compares them for
// caching purposes: session-major, then data type, then uid, with an empty
// session acting as a wildcard on both sides.
func (id ConnectionId) Equal(other ConnectionId) bool {
	return sessionsMatch(id.Session, other.Session) &&
		id.DataType == other.DataType &&
		id.UID == other.UID
}

// CacheKey returns a key suitable for a map, deliberately excluding Session
// so that cross-session lookups by (uid, data_type) remain possible; callers
// that need session-exact caching combine this with an explicit session
// check (see iomanager.go).
func (id ConnectionId) CacheKey() string {
	return id.DataType + "\x00" + id.UID
}

// Less implements a session-major, data-type, uid total order (used when
// ConnectionId values need a stable ordering, e.g. for deterministic
// iteration in tests).
func (id ConnectionId) Less(other ConnectionId) bool {
	if id.Session != other.Session {
		return id.Session < other.Session
	}

	if id.DataType != other.DataType {
		return id.DataType < other.DataType
	}

	return id.UID < other.UID
}

// Matches reports whether a candidate identifier satisfies this identifier
// used as a query: data types must be equal, sessions must be equal or
// either wildcard-empty, and the query's UID is interpreted as a regex
// matched against the candidate's UID.
func (id ConnectionId) Matches(candidate ConnectionId) (bool, error) {
	if id.DataType != candidate.DataType {
		return false, nil
	}

	if !sessionsMatch(id.Session, candidate.Session) {
		return false, nil
	}

	re, err := regexp.Compile(id.UID)
	if err != nil {
		return false, fmt.Errorf("iomanager: invalid uid regex %q: %w", id.UID, err)
	}

	return re.MatchString(candidate.UID), nil
}

func sessionsMatch(a, b string) bool {
	return a == "" || b == "" || a == b
}

// ConnectionKind distinguishes the two transport role pairs.
type ConnectionKind int

const (
	ConnectionKindSendRecv ConnectionKind = iota
	ConnectionKindPubSub
)

func (k ConnectionKind) String() string {
	switch k {
	case ConnectionKindSendRecv:
		return "send-recv"
	case ConnectionKindPubSub:
		return "pub-sub"
	default:
		return "unknown"
	}
}

// ParseConnectionKind accepts "send-recv" (the default when empty) and
// "pub-sub".
func ParseConnectionKind(raw string) (ConnectionKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "send-recv", "sendrecv", "send_recv":
		return ConnectionKindSendRecv, nil
	case "pub-sub", "pubsub", "pub_sub":
		return ConnectionKindPubSub, nil
	default:
		return 0, fmt.Errorf("%w (kind=%q)", ErrUnsupportedProtocol, raw)
	}
}

// QueueVariant names the queue registry's three backing implementations.
type QueueVariant int

const (
	QueueVariantDeque QueueVariant = iota
	QueueVariantSPSC
	QueueVariantMPMC
)

func (v QueueVariant) String() string {
	switch v {
	case QueueVariantDeque:
		return "deque"
	case QueueVariantSPSC:
		return "spsc"
	case QueueVariantMPMC:
		return "mpmc"
	default:
		return "unknown"
	}
}

// ParseQueueVariant accepts short ("spsc"), prefixed ("queue-spsc"), and full
// ("StdDeQueue") forms, mirroring the original C++ catalog's flexible naming.
func ParseQueueVariant(raw string) (QueueVariant, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "deque", "std-deque", "stddequeue", "queue-deque":
		return QueueVariantDeque, nil
	case "spsc", "queue-spsc", "follyspsc":
		return QueueVariantSPSC, nil
	case "mpmc", "queue-mpmc":
		return QueueVariantMPMC, nil
	default:
		return 0, fmt.Errorf("%w (variant=%q)", ErrQueueTypeUnknown, raw)
	}
}

// ConnectionConfig is a pre-configured endpoint, loaded once at Configure and
// immutable afterwards.
type ConnectionConfig struct {
	ID   ConnectionId   `conf:"id"`
	URI  string         `conf:"uri"`
	Kind ConnectionKind `conf:"kind"`
}

// QueueConfig is a queue declaration, loaded once at Configure and immutable
// afterwards.
type QueueConfig struct {
	ID       ConnectionId `conf:"id"`
	Variant  QueueVariant `conf:"variant"`
	Capacity uint32       `conf:"capacity"`
}

// HasWildcard reports whether a URI still contains an unresolved wildcard
// host or port (e.g. "tcp://*:*" or "tcp://0.0.0.0:0").
func HasWildcard(uri string) bool {
	return strings.Contains(uri, "*") || strings.Contains(uri, "0.0.0.0")
}
