package protocol_test

import (
	"testing"

	"cellarium.dev/internal/protocol"
)

func TestDecodeBase_RoutesByType(t *testing.T) {
	m, err := protocol.DecodeBase([]byte(`{"type":"SUBSCRIBE","protocol_version":"1.0","every_ticks":3}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != protocol.TypeSubscribe {
		t.Fatalf("type=%q, want %q", m.Type, protocol.TypeSubscribe)
	}
	if m.ProtocolVersion != protocol.Version {
		t.Fatalf("protocol_version=%q, want %q", m.ProtocolVersion, protocol.Version)
	}
}

func TestDecodeBase_RejectsMalformedJSON(t *testing.T) {
	if _, err := protocol.DecodeBase([]byte(`{"type":`)); err == nil {
		t.Fatalf("malformed message decoded")
	}
}

func TestDecodeBase_UnknownTypePassesThrough(t *testing.T) {
	m, err := protocol.DecodeBase([]byte(`{"type":"PING"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != "PING" || m.ProtocolVersion != "" {
		t.Fatalf("unexpected base message: %+v", m)
	}
}
