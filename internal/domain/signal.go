package domain

import (
	"encoding/json"
	"fmt"
)

type SignalKind int

const (
	SignalOffer SignalKind = iota + 1
	SignalAnswer
	SignalICECandidate
)

func (k SignalKind) String() string {
	switch k {
	case SignalOffer:
		return "offer"
	case SignalAnswer:
		return "answer"
	case SignalICECandidate:
		return "iceCandidate"
	default:
		return fmt.Sprintf("SignalKind(%d)", int(k))
	}
}

// Signal is an opaque negotiation envelope travelling between two connections.
type Signal struct {
	Kind    SignalKind
	Payload json.RawMessage
	Sender  string
	Target  string
}
