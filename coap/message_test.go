package coap

import "testing"

func TestTokenEqualAndKey(t *testing.T) {
	a := Token{0x01, 0x02}
	b := Token{0x01, 0x02}
	c := Token{0x01, 0x03}

	if !a.Equal(b) {
		t.Fatalf("expected equal tokens to compare equal")
	}
	if a.Equal(c) {
		t.Fatalf("expected distinct tokens to compare unequal")
	}
	if a.Key() != b.Key() {
		t.Fatalf("expected equal tokens to share a map key")
	}
}

func TestTokenIsPing(t *testing.T) {
	if !(Token{}).IsPing() {
		t.Fatalf("zero-length token must report IsPing")
	}
	if (Token{0x00}).IsPing() {
		t.Fatalf("a single zero byte is not the empty token")
	}
}

func TestCodeClassAndIsError(t *testing.T) {
	content := Code(0x45) // 2.05
	notFound := Code(0x84) // 4.04
	serverErr := Code(0xA0) // 5.00

	if content.IsError() {
		t.Fatalf("2.05 should not be an error code")
	}
	if !notFound.IsError() || notFound.Class() != 4 {
		t.Fatalf("4.04 should be class 4 and an error")
	}
	if !serverErr.IsError() || serverErr.Class() != 5 {
		t.Fatalf("5.00 should be class 5 and an error")
	}
}

func TestSimpleMessageUpdateNotification(t *testing.T) {
	m := &SimpleMessage{Typ: CON, Cod: 0x45}
	if m.IsUpdateNotification() {
		t.Fatalf("a message without an observe option is not a notification")
	}
	m.SetObserve(7)
	if !m.IsUpdateNotification() {
		t.Fatalf("setting observe should mark the message a notification")
	}
	seq, ok := m.Observe()
	if !ok || seq != 7 {
		t.Fatalf("expected observe=7, got %d (ok=%v)", seq, ok)
	}
}

func TestSimpleMessagePayload(t *testing.T) {
	m := &SimpleMessage{Typ: ACK, Cod: CodeContinue, Body: []byte("abc")}
	if string(m.Payload()) != "abc" {
		t.Fatalf("expected payload to round-trip, got %q", m.Payload())
	}
}

func TestSimpleMessagePingPredicate(t *testing.T) {
	ping := &SimpleMessage{Typ: CON, Cod: CodeEmpty}
	if !ping.IsPing() {
		t.Fatalf("empty-token empty-code CON should be a ping")
	}
	ping.SetToken(Token{0x01})
	if ping.IsPing() {
		t.Fatalf("a non-empty token disqualifies a ping")
	}
}
