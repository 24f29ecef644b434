package protocol

import (
	"encoding/json"
	"testing"
)

func TestDecodeEncodeRoundTrip(t *testing.T) {
	raw := []byte(`{"now":10,"events":[
		{"timestamp":3,"type":"JOB_SUBMITTED","data":{"job_id":"w!1"}},
		{"timestamp":7,"type":"JOB_COMPLETED","data":{"job_id":"w!1"}}
	]}`)
	m, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.Now != 10 || len(m.Events) != 2 {
		t.Fatalf("unexpected decode result: %+v", m)
	}

	out, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	m2, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode(Encode(m)): %v", err)
	}
	if m2.Now != m.Now || len(m2.Events) != len(m.Events) {
		t.Fatalf("round trip mismatch: %+v vs %+v", m, m2)
	}
}

// A scheduler reply with events out of timestamp order ([5, 3] at now=10)
// must be rejected as a protocol violation.
func TestDecodeRejectsOutOfOrderTimestamps(t *testing.T) {
	raw := []byte(`{"now":10,"events":[
		{"timestamp":5,"type":"CALL_ME_LATER","data":{"timestamp":5}},
		{"timestamp":3,"type":"CALL_ME_LATER","data":{"timestamp":3}}
	]}`)
	_, err := Decode(raw)
	if err == nil {
		t.Fatal("expected protocol violation for out-of-order timestamps")
	}
	if _, ok := err.(*ProtocolError); !ok {
		t.Fatalf("expected *ProtocolError, got %T: %v", err, err)
	}
}

func TestDecodeRejectsTimestampExceedingNow(t *testing.T) {
	raw := []byte(`{"now":1,"events":[{"timestamp":5,"type":"NOTIFY","data":{"type":"no_more_static_job_to_submit"}}]}`)
	if _, err := Decode(raw); err == nil {
		t.Fatal("expected protocol violation for timestamp exceeding now")
	}
}

func TestDecodeRejectsMissingType(t *testing.T) {
	raw := []byte(`{"now":1,"events":[{"timestamp":0,"data":{}}]}`)
	if _, err := Decode(raw); err == nil {
		t.Fatal("expected protocol violation for missing type")
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	raw := []byte(`{"now":1,"events":[{"timestamp":0,"type":"BOGUS_EVENT","data":{}}]}`)
	if _, err := Decode(raw); err == nil {
		t.Fatal("expected protocol violation for unknown type")
	}
}

func TestDecodeRejectsMissingData(t *testing.T) {
	raw := []byte(`{"now":1,"events":[{"timestamp":0,"type":"NOTIFY"}]}`)
	if _, err := Decode(raw); err == nil {
		t.Fatal("expected protocol violation for missing data")
	}
}

func TestWriterRejectsDecreasingTimestamp(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on decreasing timestamp append")
		}
	}()
	w := NewWriter(10)
	w.Append(3, JobSubmitted, json.RawMessage(`{}`))
	w.Append(1, JobCompleted, json.RawMessage(`{}`))
}

func TestWriterMessageAndClear(t *testing.T) {
	w := NewWriter(5)
	w.Append(1, JobSubmitted, json.RawMessage(`{"job_id":"w!1"}`))
	w.Append(2, JobCompleted, json.RawMessage(`{"job_id":"w!1"}`))
	msg := w.Message()
	if msg.Now != 5 || len(msg.Events) != 2 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	w.Clear(6)
	if w.Len() != 0 {
		t.Fatalf("expected Writer to be empty after Clear, got %d events", w.Len())
	}
	w.Append(0, SimulationBegins, json.RawMessage(`{}`))
	if w.Message().Now != 6 {
		t.Fatalf("expected now=6 after Clear, got %v", w.Message().Now)
	}
}
