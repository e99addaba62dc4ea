package audio

import (
	"bytes"
	"log/slog"
)

// Format is a container format identified by magic-byte sniffing.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatM4A  Format = "m4a"
	FormatMP4  Format = "mp4"
	FormatOGG  Format = "ogg"
	FormatFLAC Format = "flac"
)

// IsValid reports whether f is a known container format.
func (f Format) IsValid() bool {
	switch f {
	case FormatWAV, FormatMP3, FormatM4A, FormatMP4, FormatOGG, FormatFLAC:
		return true
	}
	return false
}

// Sniff identifies the container format from the leading bytes of data.
//
// Unknown signatures fall back to mp3. Upstream recorders label blobs
// inconsistently and the historic ingest path assumed mp3 when in doubt, so
// the fallback is kept for compatibility, but it can mask real detection
// failures (WEBM, OPUS) and is therefore logged at warn level.
func Sniff(data []byte) Format {
	if len(data) >= 12 {
		switch {
		case bytes.HasPrefix(data, []byte("ID3")):
			return FormatMP3
		case data[0] == 0xFF && (data[1] == 0xFB || data[1] == 0xF3):
			return FormatMP3
		case bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
			return FormatWAV
		case bytes.Equal(data[4:8], []byte("ftyp")):
			return sniffFtyp(data[8:12])
		case bytes.HasPrefix(data, []byte("OggS")):
			return FormatOGG
		case bytes.HasPrefix(data, []byte("fLaC")):
			return FormatFLAC
		}
	}

	slog.Warn("audio: no known magic bytes, assuming mp3",
		"bytes", len(data),
		"head", head(data, 8),
	)
	return FormatMP3
}

// sniffFtyp classifies an ISO base-media file by its ftyp major brand.
func sniffFtyp(brand []byte) Format {
	switch {
	case bytes.HasPrefix(brand, []byte("M4A")),
		bytes.HasPrefix(brand, []byte("M4B")),
		bytes.HasPrefix(brand, []byte("M4P")),
		bytes.HasPrefix(brand, []byte("M4V")):
		return FormatM4A
	default:
		return FormatMP4
	}
}

func head(data []byte, n int) []byte {
	if len(data) < n {
		n = len(data)
	}
	return data[:n]
}
