package speech_to_text

// Recognizer turns one session of PCM into one transcript. It is used by a
// single goroutine and discarded after FinalResult.
type Recognizer interface {
	// AcceptWaveform feeds 16-bit little-endian mono PCM, in capture order.
	AcceptWaveform(pcm []byte) error
	// FinalResult returns a JSON object whose "text" field holds the transcript.
	FinalResult() (string, error)
	Close() error
}

// Engine holds a loaded model and creates fresh recognizers from it.
type Engine interface {
	NewRecognizer() (Recognizer, error)
	Close() error
}
