package voice

// Synthesizer is the text-to-speech collaborator. Speak replaces any
// utterance already in progress.
type Synthesizer interface {
	Speak(text string)
	Stop()
	Speaking() bool
}

// NopSynthesizer discards all speech requests.
type NopSynthesizer struct{}

func (NopSynthesizer) Speak(string)   {}
func (NopSynthesizer) Stop()          {}
func (NopSynthesizer) Speaking() bool { return false }
