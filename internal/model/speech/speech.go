package speech

// TranscriptChunk is one incremental recognition result from a streaming
// transcription session. Interim chunks may be revised by later ones;
// only final chunks contribute to the utterance transcript.
type TranscriptChunk struct {
	Text       string
	IsFinal    bool
	Confidence float64
}
