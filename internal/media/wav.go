package media

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"clipforge/internal/services"
)

// PCM holds decoded mono audio samples normalized to [-1, 1].
type PCM struct {
	SampleRate int
	Samples    []float64
}

// DurationSeconds returns the decoded audio length.
func (p PCM) DurationSeconds() float64 {
	if p.SampleRate <= 0 {
		return 0
	}
	return float64(len(p.Samples)) / float64(p.SampleRate)
}

// DecodeWAV reads a RIFF/WAVE file containing 16-bit PCM audio. Multi-channel
// input is downmixed by averaging channels.
func DecodeWAV(path string) (PCM, error) {
	file, err := os.Open(path)
	if err != nil {
		return PCM{}, services.Wrap(services.ErrMedia, "", "decode wav", "open file", err)
	}
	defer file.Close()
	return decodeWAV(file)
}

func decodeWAV(r io.Reader) (PCM, error) {
	var riff struct {
		ChunkID [4]byte
		Size    uint32
		Format  [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &riff); err != nil {
		return PCM{}, wavErr("read RIFF header", err)
	}
	if string(riff.ChunkID[:]) != "RIFF" || string(riff.Format[:]) != "WAVE" {
		return PCM{}, wavErr("not a RIFF/WAVE stream", nil)
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		haveFormat    bool
	)

	for {
		var header struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
			if err == io.EOF {
				return PCM{}, wavErr("missing data chunk", nil)
			}
			return PCM{}, wavErr("read chunk header", err)
		}

		switch string(header.ID[:]) {
		case "fmt ":
			var format struct {
				AudioFormat   uint16
				Channels      uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if header.Size < 16 {
				return PCM{}, wavErr("fmt chunk too small", nil)
			}
			if err := binary.Read(r, binary.LittleEndian, &format); err != nil {
				return PCM{}, wavErr("read fmt chunk", err)
			}
			if extra := int64(header.Size) - 16; extra > 0 {
				if _, err := io.CopyN(io.Discard, r, extra); err != nil {
					return PCM{}, wavErr("skip fmt extension", err)
				}
			}
			if format.AudioFormat != 1 {
				return PCM{}, wavErr(fmt.Sprintf("unsupported audio format %d, want PCM", format.AudioFormat), nil)
			}
			if format.BitsPerSample != 16 {
				return PCM{}, wavErr(fmt.Sprintf("unsupported bit depth %d, want 16", format.BitsPerSample), nil)
			}
			if format.Channels == 0 || format.SampleRate == 0 {
				return PCM{}, wavErr("fmt chunk reports zero channels or sample rate", nil)
			}
			sampleRate = int(format.SampleRate)
			channels = int(format.Channels)
			bitsPerSample = int(format.BitsPerSample)
			haveFormat = true

		case "data":
			if !haveFormat {
				return PCM{}, wavErr("data chunk before fmt chunk", nil)
			}
			return decodePCM16(r, header.Size, sampleRate, channels, bitsPerSample)

		default:
			skip := int64(header.Size)
			if header.Size%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return PCM{}, wavErr("skip chunk", err)
			}
		}
	}
}

func decodePCM16(r io.Reader, size uint32, sampleRate, channels, bitsPerSample int) (PCM, error) {
	bytesPerFrame := channels * bitsPerSample / 8
	frames := int(size) / bytesPerFrame
	samples := make([]float64, 0, frames)

	buf := make([]byte, 4096*bytesPerFrame)
	remaining := int(size)
	carry := 0
	for remaining > 0 {
		want := len(buf) - carry
		if want > remaining {
			want = remaining
		}
		n, err := io.ReadFull(r, buf[carry:carry+want])
		remaining -= n
		total := carry + n
		whole := total / bytesPerFrame * bytesPerFrame
		for i := 0; i+bytesPerFrame <= whole; i += bytesPerFrame {
			sum := 0.0
			for ch := 0; ch < channels; ch++ {
				raw := int16(binary.LittleEndian.Uint16(buf[i+ch*2:]))
				sum += float64(raw) / 32768.0
			}
			samples = append(samples, sum/float64(channels))
		}
		carry = total - whole
		copy(buf, buf[whole:total])
		if err != nil {
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				break
			}
			return PCM{}, wavErr("read data chunk", err)
		}
	}

	return PCM{SampleRate: sampleRate, Samples: samples}, nil
}

func wavErr(message string, err error) error {
	return services.Wrap(services.ErrMedia, "", "decode wav", message, err)
}
