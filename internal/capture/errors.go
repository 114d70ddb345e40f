package capture

import "fmt"

// Recognizer error codes.
const (
	CodeNotAllowed   = "not-allowed"
	CodeNoSpeech     = "no-speech"
	CodeAudioCapture = "audio-capture"
	CodeNetwork      = "network"
)

// Describe maps a recognizer error code to a message for the user.
func Describe(code string) string {
	switch code {
	case CodeNotAllowed:
		return "Microphone access denied. Allow microphone access and try again."
	case CodeNoSpeech:
		return "No speech detected. Try speaking closer to the microphone."
	case CodeAudioCapture:
		return "No microphone found. Check your audio input device."
	case CodeNetwork:
		return "Network error during speech recognition. Check your connection."
	case "":
		return "Speech recognition error."
	default:
		return fmt.Sprintf("Speech recognition error: %s", code)
	}
}

// Terminal reports whether retrying cannot succeed without user action.
func Terminal(code string) bool {
	return code == CodeNotAllowed || code == CodeAudioCapture
}
