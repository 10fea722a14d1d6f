package voice

import "encoding/base64"

// Base64Result is the {processed_audio, is_speech, vad_confidence} triple
// process_audio_base64 returns (ai_voice.py:285).
type Base64Result struct {
	ProcessedAudio string
	IsSpeech       bool
	VADConfidence  float64
}

// ProcessBase64 implements process_base64: decodes a base64-encoded raw PCM
// frame, runs it through the same denoise+VAD pipeline as ProcessAudio, and
// re-encodes the denoised frame back to base64 alongside the speech decision
// and VAD confidence.
func (p *Processor) ProcessBase64(encoded string) (Base64Result, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Base64Result{}, &DecodeError{Reason: "invalid base64 audio", Cause: err}
	}
	denoised, isSpeech, vadConfidence := p.processFrame(raw)
	return Base64Result{
		ProcessedAudio: base64.StdEncoding.EncodeToString(denoised),
		IsSpeech:       isSpeech,
		VADConfidence:  vadConfidence,
	}, nil
}
