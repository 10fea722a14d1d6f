package voice

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ProcessWAV is the supplemented feature spec.md's distillation dropped:
// ai_voice.py's process_wav_file. It accepts a WAV container, denoises the
// PCM samples via ProcessBuffer, and re-wraps them in a canonical-format
// WAV (mono, 16-bit, 16kHz) container.
//
// Multi-channel input is downmixed to mono by averaging. No resampling
// library exists anywhere in the example corpus (see DESIGN.md), so a
// non-canonical sample rate or bit depth is still rejected rather than
// silently resampled — unlike the Python original's librosa-or-best-effort
// path.
func ProcessWAV(wavData []byte) ([]byte, error) {
	pcm, err := decodeWAV(wavData)
	if err != nil {
		return nil, err
	}
	processed := ProcessBuffer(pcm)
	return encodeWAV(processed), nil
}

type wavHeader struct {
	NumChannels   uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// decodeWAV parses the minimal RIFF/WAVE structure needed: a "fmt " chunk
// describing PCM layout and a "data" chunk of samples. It rejects any file
// that is not 16-bit/16kHz, per the no-resampling note above; multi-channel
// data is downmixed to mono.
func decodeWAV(data []byte) ([]byte, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, &DecodeError{Reason: "not a RIFF/WAVE file"}
	}

	var hdr wavHeader
	var pcm []byte
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		chunkStart := offset + 8
		if chunkStart+chunkSize > len(data) {
			break
		}
		chunkData := data[chunkStart : chunkStart+chunkSize]

		switch chunkID {
		case "fmt ":
			if len(chunkData) < 16 {
				return nil, &DecodeError{Reason: "truncated fmt chunk"}
			}
			hdr.NumChannels = binary.LittleEndian.Uint16(chunkData[2:4])
			hdr.SampleRate = binary.LittleEndian.Uint32(chunkData[4:8])
			hdr.BitsPerSample = binary.LittleEndian.Uint16(chunkData[14:16])
		case "data":
			pcm = chunkData
		}

		offset = chunkStart + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if pcm == nil {
		return nil, &DecodeError{Reason: "no data chunk found"}
	}
	if hdr.SampleRate != SampleRate || hdr.BitsPerSample != 16 {
		return nil, &DecodeError{Reason: fmt.Sprintf("unsupported WAV format (channels=%d rate=%d bits=%d), expected %dHz/16-bit (resampling is not supported)",
			hdr.NumChannels, hdr.SampleRate, hdr.BitsPerSample, SampleRate)}
	}
	if hdr.NumChannels == 0 {
		return nil, &DecodeError{Reason: "WAV fmt chunk declares zero channels"}
	}
	if hdr.NumChannels > 1 {
		pcm = downmix(pcm, int(hdr.NumChannels))
	}
	return pcm, nil
}

// downmix averages interleaved multi-channel 16-bit PCM samples down to
// mono. No resampling library exists in the example corpus (see DESIGN.md),
// but channel downmixing needs none: it's a per-frame mean.
func downmix(pcm []byte, numChannels int) []byte {
	frameBytes := numChannels * 2
	numFrames := len(pcm) / frameBytes
	out := make([]byte, numFrames*2)
	for i := 0; i < numFrames; i++ {
		var sum int32
		base := i * frameBytes
		for c := 0; c < numChannels; c++ {
			v := int16(binary.LittleEndian.Uint16(pcm[base+c*2 : base+c*2+2]))
			sum += int32(v)
		}
		mixed := int16(sum / int32(numChannels))
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(mixed))
	}
	return out
}

// encodeWAV wraps raw mono/16-bit/16kHz PCM samples in a minimal canonical
// WAV container.
func encodeWAV(pcm []byte) []byte {
	var buf bytes.Buffer

	const (
		numChannels   = 1
		bitsPerSample = 16
	)
	byteRate := SampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8
	dataSize := uint32(len(pcm))
	riffSize := 36 + dataSize

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, riffSize)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(&buf, binary.LittleEndian, uint32(SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(pcm)

	return buf.Bytes()
}
