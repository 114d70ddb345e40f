package capture

import (
	"testing"

	"github.com/goccy/go-json"
)

func result(final bool, transcript string) RecognitionResult {
	return RecognitionResult{
		IsFinal:      final,
		Alternatives: []Alternative{{Transcript: transcript, Confidence: 0.9}},
	}
}

func TestFragmentsFinalAndInterim(t *testing.T) {
	r := Recognition{
		ResultIndex: 0,
		Results: []RecognitionResult{
			result(true, "What is a mutex?"),
			result(false, " and how"),
			result(false, " does it work"),
		},
	}

	got := r.Fragments()
	if len(got) != 2 {
		t.Fatalf("len(fragments) = %d, want 2: %+v", len(got), got)
	}
	if !got[0].IsFinal || got[0].Text != "What is a mutex?" {
		t.Errorf("fragment 0 = %+v", got[0])
	}
	if got[1].IsFinal || got[1].Text != "and how does it work" {
		t.Errorf("fragment 1 = %+v", got[1])
	}
}

func TestFragmentsSkipsDeliveredResults(t *testing.T) {
	r := Recognition{
		ResultIndex: 1,
		Results: []RecognitionResult{
			result(true, "already delivered"),
			result(true, "new text"),
		},
	}

	got := r.Fragments()
	if len(got) != 1 || got[0].Text != "new text" {
		t.Errorf("fragments = %+v, want only %q", got, "new text")
	}
}

func TestFragmentsIgnoresEmpty(t *testing.T) {
	r := Recognition{
		ResultIndex: 5,
		Results: []RecognitionResult{
			{IsFinal: true},
			result(true, "   "),
		},
	}
	if got := r.Fragments(); len(got) != 0 {
		t.Errorf("fragments = %+v, want none", got)
	}

	r.ResultIndex = 0
	if got := r.Fragments(); len(got) != 0 {
		t.Errorf("fragments = %+v, want none", got)
	}
}

func TestFrameDecodeResult(t *testing.T) {
	raw := `{"type":"result","resultIndex":0,"results":[{"isFinal":true,"alternatives":[{"transcript":"hello","confidence":0.8}]}]}`

	var f Frame
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Type != "result" {
		t.Errorf("type = %q, want result", f.Type)
	}

	frags := f.Recognition().Fragments()
	if len(frags) != 1 || frags[0].Text != "hello" || !frags[0].IsFinal {
		t.Errorf("fragments = %+v", frags)
	}
}

func TestCommandOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Command{Cmd: "stop"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if _, ok := raw["locale"]; ok {
		t.Error("stop command should omit locale")
	}
	if _, ok := raw["events"]; ok {
		t.Error("stop command should omit events")
	}
}

func TestEventUnmarshalError(t *testing.T) {
	raw := `{"event":"error","code":"no-speech","message":"silence"}`

	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Code != "no-speech" {
		t.Errorf("code = %q, want no-speech", ev.Code)
	}
	if ev.Message != "silence" {
		t.Errorf("message = %q, want silence", ev.Message)
	}
}
