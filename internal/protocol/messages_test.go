package protocol

import (
	"encoding/json"
	"testing"

	"github.com/MRamiBalles/worldstatus/internal/domain/status"
)

func TestEncodeWrapsEnvelope(t *testing.T) {
	var f status.FlagWords
	f.Set(status.Poisoned)

	raw, err := Encode(NewStatusFlag(7, f))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Type != "status_flag" {
		t.Fatalf("expected status_flag, got %s", env.Type)
	}
	var msg MsgStatusFlag
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if msg.Identity != 7 || msg.Flag1 != 2 {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestDecodeRequestAppliesValidation(t *testing.T) {
	raw, err := Encode(StatusRequest{Action: ActionAttach, RoleID: 9, Status: 43, Seconds: 10})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	req, err := DecodeRequest(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.CanonicalStatus() != status.Poisoned {
		t.Fatalf("expected legacy code 43 to map to poisoned, got %d", req.CanonicalStatus())
	}

	bad, _ := Encode(StatusRequest{Action: "explode", RoleID: 9})
	if _, err := DecodeRequest(bad); err == nil {
		t.Fatal("expected unknown action to fail")
	}

	other, _ := Encode(MsgAura{})
	if _, err := DecodeRequest(other); err == nil {
		t.Fatal("expected wrong envelope type to fail")
	}
}

func TestValidateBoundsTiming(t *testing.T) {
	tests := []struct {
		name string
		req  StatusRequest
		ok   bool
	}{
		{"plain attach", StatusRequest{Action: ActionAttach, RoleID: 1, Status: 9, Seconds: 30}, true},
		{"longest duration", StatusRequest{Action: ActionAttach, RoleID: 1, Status: 9, Seconds: status.MaxSeconds}, true},
		{"negative seconds", StatusRequest{Action: ActionAttach, RoleID: 1, Status: 9, Seconds: -1}, false},
		{"overflowing seconds", StatusRequest{Action: ActionAttach, RoleID: 1, Status: 2, Seconds: 1 << 40, Times: 3}, false},
		{"negative times", StatusRequest{Action: ActionAttach, RoleID: 1, Status: 2, Seconds: 2, Times: -3}, false},
		{"detach ignores timing", StatusRequest{Action: ActionDetach, RoleID: 1, Status: 2, Seconds: 1 << 40}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
