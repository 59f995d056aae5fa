package recording

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/voicebridge/voicebridge/pkg/logger"
)

// Fixed encoding parameters. The client must deliver PCM16LE mono 16kHz;
// nothing is negotiated or resampled.
const (
	SampleRate     = 16000
	Channels       = 1
	BytesPerSample = 2
	BitsPerSample  = 16

	wavPCMFormat  = 1
	wavHeaderSize = 44
)

// ErrNoAudio signals a stop request with an empty buffer. No file is created.
var ErrNoAudio = errors.New("no audio data to persist")

// Writer persists raw PCM buffers as playable WAV files.
type Writer struct {
	dir    string
	logger logger.Logger
	// mu serializes naming + write so concurrent sessions stopping in the
	// same second cannot land on the same file.
	mu sync.Mutex
	// now is injectable for testing; defaults to time.Now.
	now func() time.Time
}

// NewWriter creates a Writer targeting dir. The directory is created lazily
// on first write.
func NewWriter(dir string, log logger.Logger) *Writer {
	return &Writer{dir: dir, logger: log, now: time.Now}
}

// Write encodes pcm into a timestamped WAV file and returns its path.
func (w *Writer) Write(pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", ErrNoAudio
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create recordings dir %s: %w", w.dir, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	path := w.nextPath()
	if err := os.WriteFile(path, EncodeWAV(pcm), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	w.logger.Infof("[recording] audio saved locally: %s (%d bytes of PCM)", path, len(pcm))
	return path, nil
}

// nextPath picks interview_<unixSeconds>.wav, suffixing a counter when a
// recording from the same second already exists.
func (w *Writer) nextPath() string {
	base := fmt.Sprintf("interview_%d", w.now().Unix())
	path := filepath.Join(w.dir, base+".wav")
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(w.dir, fmt.Sprintf("%s_%d.wav", base, n))
	}
}

// EncodeWAV wraps pcm in a RIFF/WAVE container with the fixed parameters.
func EncodeWAV(pcm []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(pcm))

	byteRate := SampleRate * Channels * BytesPerSample
	blockAlign := Channels * BytesPerSample

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(wavPCMFormat))
	binary.Write(&buf, binary.LittleEndian, uint16(Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(BitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
