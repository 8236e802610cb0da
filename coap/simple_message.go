package coap

// SimpleMessage is a minimal, concrete Message usable by a host
// application that doesn't already have its own wire-decoded type, and by
// this module's own tests. Production callers with a real codec are free
// to implement Message directly over their own wire type instead.
// A fresh outbound request must set ID to UndefinedID (the zero value, 0,
// is a valid wire message ID and would be mistaken for an already-assigned
// one); NewRequest does this for callers that don't need the other fields.
type SimpleMessage struct {
	ID         MessageID
	Tok        Token
	Typ        Type
	Cod        Code
	ObserveSeq uint32
	HasObserve bool
	Request    bool
	Body       []byte
}

// NewRequest builds a fresh outbound request with no message ID assigned
// yet, ready for the reliability engine to stamp one in.
func NewRequest(typ Type, code Code) *SimpleMessage {
	return &SimpleMessage{ID: UndefinedID, Typ: typ, Cod: code, Request: true}
}

func (m *SimpleMessage) MessageID() MessageID      { return m.ID }
func (m *SimpleMessage) SetMessageID(id MessageID) { m.ID = id }
func (m *SimpleMessage) Token() Token              { return m.Tok }
func (m *SimpleMessage) SetToken(tok Token)         { m.Tok = tok }
func (m *SimpleMessage) Type() Type                { return m.Typ }
func (m *SimpleMessage) Code() Code                { return m.Cod }

func (m *SimpleMessage) IsPing() bool { return m.Tok.IsPing() && m.Cod == CodeEmpty && m.Typ == CON }

func (m *SimpleMessage) IsRequest() bool { return m.Request }

func (m *SimpleMessage) IsResponse() bool { return !m.Request && m.Cod != CodeEmpty }

func (m *SimpleMessage) IsUpdateNotification() bool {
	return !m.Request && m.HasObserve
}

func (m *SimpleMessage) IsErrorResponse() bool { return m.Cod.IsError() }

func (m *SimpleMessage) Observe() (uint32, bool) { return m.ObserveSeq, m.HasObserve }

func (m *SimpleMessage) SetObserve(seq uint32) {
	m.ObserveSeq = seq
	m.HasObserve = true
}

func (m *SimpleMessage) Payload() []byte { return m.Body }

var _ Message = (*SimpleMessage)(nil)
