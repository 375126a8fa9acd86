package types

// Event is the structured record emitted by every successful mutating
// operation. Attribute values are strings so the payload survives JSON-RPC
// transport without loss (big integers, hashes, addresses).
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Clone returns a deep copy so buffered events cannot be mutated by callers.
func (e Event) Clone() Event {
	attrs := make(map[string]string, len(e.Attributes))
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	return Event{Type: e.Type, Attributes: attrs}
}
