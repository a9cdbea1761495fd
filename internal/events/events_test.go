package events

import (
	"errors"
	"testing"

	"github.com/dropDatabas3/datavault/internal/catalog/core"
)

func TestDecodePayloadStored(t *testing.T) {
	raw, err := Encode(PayloadStored{VersionID: "v1", Digest: "abc"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	ev, err := DecodePayloadStored(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.VersionID != "v1" || ev.Digest != "abc" {
		t.Fatalf("Decode = %+v", ev)
	}
}

func TestDecodePayloadStoredMalformed(t *testing.T) {
	cases := map[string][]byte{
		"json roto":  []byte("{not json"),
		"id vacío":   []byte(`{"version_id":""}`),
		"sin campos": []byte(`{}`),
	}
	for name, raw := range cases {
		if _, err := DecodePayloadStored(raw); !errors.Is(err, ErrMalformed) {
			t.Errorf("%s: err = %v, want ErrMalformed", name, err)
		}
	}
}

func TestDecodeQAVerdict(t *testing.T) {
	raw, _ := Encode(QAVerdict{VersionID: "v1", Verdict: VerdictAccepted, Reviewer: "qa-1"})
	ev, err := DecodeQAVerdict(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.Verdict != VerdictAccepted || ev.Reviewer != "qa-1" {
		t.Fatalf("Decode = %+v", ev)
	}
}

func TestDecodeQAVerdictUnknownVerdict(t *testing.T) {
	raw := []byte(`{"version_id":"v1","verdict":"maybe"}`)
	if _, err := DecodeQAVerdict(raw); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestDecodeAwaitingQA(t *testing.T) {
	key := core.LogicalKey{OwnerID: "o1", DatasetKind: "sfdr", ReportingPeriod: "2026"}
	raw, _ := Encode(AwaitingQA{VersionID: "v1", Key: key, BypassQA: true})
	ev, err := DecodeAwaitingQA(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.Key != key || !ev.BypassQA {
		t.Fatalf("Decode = %+v", ev)
	}
}
