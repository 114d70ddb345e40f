// Package capture connects to an external speech recognizer and turns its
// output into transcript fragments and session events.
package capture

import "strings"

// Command is sent to a recognizer.
type Command struct {
	Cmd    string   `json:"cmd"`
	Locale string   `json:"locale,omitempty"`
	Events []string `json:"events,omitempty"`
}

// Response is returned by the daemon after processing a command.
type Response struct {
	OK        bool   `json:"ok"`
	SessionID string `json:"sessionId,omitempty"`
	Recording *bool  `json:"recording,omitempty"`
	Error     string `json:"error,omitempty"`
	Status    string `json:"status,omitempty"`
}

// Event is streamed from the daemon to subscribed clients.
type Event struct {
	Event          string   `json:"event"`
	Text           string   `json:"text,omitempty"`
	Source         string   `json:"source,omitempty"`
	Mic            *float32 `json:"mic,omitempty"`
	SessionID      string   `json:"sessionId,omitempty"`
	SequenceNumber *int     `json:"sequenceNumber,omitempty"`
	Code           string   `json:"code,omitempty"`
	Message        string   `json:"message,omitempty"`
	Recording      *bool    `json:"recording,omitempty"`
}

// Alternative is one hypothesis for a recognized span.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// RecognitionResult is one recognized span, interim until IsFinal is set.
type RecognitionResult struct {
	IsFinal      bool          `json:"isFinal"`
	Alternatives []Alternative `json:"alternatives"`
}

// Recognition is one recognition event. Results before ResultIndex were
// already delivered by earlier events.
type Recognition struct {
	ResultIndex int                 `json:"resultIndex"`
	Results     []RecognitionResult `json:"results"`
}

// Fragment is a piece of transcript text, interim (still changing) or final.
type Fragment struct {
	Text    string
	IsFinal bool
}

// Fragments converts the results from ResultIndex onward into fragments: one
// final fragment per finalized result, in order, followed by at most one
// interim fragment holding the concatenated unstable text. Only the first
// alternative of each result is used.
func (r Recognition) Fragments() []Fragment {
	var out []Fragment
	var interim strings.Builder

	start := max(r.ResultIndex, 0)
	for i := start; i < len(r.Results); i++ {
		res := r.Results[i]
		if len(res.Alternatives) == 0 {
			continue
		}
		text := res.Alternatives[0].Transcript
		if res.IsFinal {
			if t := strings.TrimSpace(text); t != "" {
				out = append(out, Fragment{Text: t, IsFinal: true})
			}
			continue
		}
		interim.WriteString(text)
	}

	if t := strings.TrimSpace(interim.String()); t != "" {
		out = append(out, Fragment{Text: t})
	}
	return out
}

// Frame is one JSON text message on a websocket recognizer connection.
type Frame struct {
	Type        string              `json:"type"`
	ResultIndex int                 `json:"resultIndex,omitempty"`
	Results     []RecognitionResult `json:"results,omitempty"`
	Error       string              `json:"error,omitempty"`
	Message     string              `json:"message,omitempty"`
	Level       *float32            `json:"level,omitempty"`
	Recording   *bool               `json:"recording,omitempty"`
}

// Recognition returns the recognition payload of a "result" frame.
func (f Frame) Recognition() Recognition {
	return Recognition{ResultIndex: f.ResultIndex, Results: f.Results}
}
