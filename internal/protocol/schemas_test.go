package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/plomlompom/plomrogue-sub000/internal/observerproto"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/world"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func asJSONValue(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestSchemas_TurnLog(t *testing.T) {
	s := compileSchema(t, "turnlog.schema.json")
	w := world.New(world.Config{}, world.Hooks{})
	entry := world.TurnLogEntry{Turn: 2, PlayerCommand: "move east", Actors: 3, Seed: 4294967295, Digest: w.StateDigest()}
	if err := s.Validate(asJSONValue(t, entry)); err != nil {
		t.Fatalf("validate: %v", err)
	}

	entry.Digest = "nope"
	if err := s.Validate(asJSONValue(t, entry)); err == nil {
		t.Fatalf("accepted malformed digest")
	}
}

func TestSchemas_Observer(t *testing.T) {
	s := compileSchema(t, "observer.schema.json")
	for _, msg := range []any{
		observerproto.SubscribeMsg{Type: observerproto.TypeSubscribe, ProtocolVersion: observerproto.Version},
		observerproto.WorldStateMsg{Type: observerproto.TypeWorldState, ProtocolVersion: observerproto.Version, Turn: 1, Text: "1\n"},
		observerproto.WithdrawnMsg{Type: observerproto.TypeWithdrawn, ProtocolVersion: observerproto.Version},
	} {
		if err := s.Validate(asJSONValue(t, msg)); err != nil {
			t.Fatalf("validate %T: %v", msg, err)
		}
	}

	var bad any
	_ = json.Unmarshal([]byte(`{"type":"WORLDSTATE","protocol_version":"1.0"}`), &bad)
	if err := s.Validate(bad); err == nil {
		t.Fatalf("accepted WORLDSTATE without text")
	}
}
