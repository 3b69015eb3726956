package recording

// Interface keeps the audio of the latest session.
type Interface interface {
	Begin()
	Append(pcm []byte)
	// Finish writes the session's audio, replacing the previous recording.
	Finish() error
}
