package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/voicebridge/voicebridge/internal/model/protocol"
	"github.com/voicebridge/voicebridge/internal/service/recording"
	"github.com/voicebridge/voicebridge/internal/service/upload"
	"github.com/voicebridge/voicebridge/pkg/logger"
)

// frameWriter is the slice of *websocket.Conn the session writes through.
type frameWriter interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
}

// Session is the per-connection recording state machine. All frames of one
// connection are handled on its read loop goroutine, so state needs no
// locking; arrival order is processing order.
type Session struct {
	id       string
	logger   logger.Logger
	writer   *recording.Writer
	uploader *upload.Coordinator

	// ownerFn reads the host's current owner; the value is snapshotted
	// when a recording starts.
	ownerFn   func() string
	maxBuffer int

	recording bool
	buffer    bytes.Buffer
	owner     string
	dropped   int

	closeOnce sync.Once
	onClose   func()
}

func newSession(id string, writer *recording.Writer, uploader *upload.Coordinator, ownerFn func() string, maxBuffer int, log logger.Logger) *Session {
	return &Session{
		id:        id,
		logger:    log,
		writer:    writer,
		uploader:  uploader,
		ownerFn:   ownerFn,
		maxBuffer: maxBuffer,
	}
}

// run sends the greeting and consumes frames until the connection ends.
func (s *Session) run(ctx context.Context, conn *websocket.Conn) {
	defer s.close()

	if err := conn.WriteJSON(protocol.NewGreeting()); err != nil {
		s.logger.Errorf("[session] greeting failed session=%s: %v", s.id, err)
		return
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warnf("[session] read error session=%s: %v", s.id, err)
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			s.handleBinary(data)
		case websocket.TextMessage:
			s.handleControl(ctx, conn, data)
		}
	}
}

// handleBinary appends audio to the buffer while recording; frames outside
// a recording cycle are discarded.
func (s *Session) handleBinary(data []byte) {
	if !s.recording || len(data) == 0 {
		return
	}

	room := s.maxBuffer - s.buffer.Len()
	if room <= 0 {
		s.dropped += len(data)
		return
	}
	if len(data) > room {
		s.buffer.Write(data[:room])
		s.dropped += len(data) - room
		s.logger.Warnf("[session] buffer cap reached session=%s dropped=%d", s.id, s.dropped)
		return
	}

	s.buffer.Write(data)
	s.logger.Debugf("[session] recording chunk session=%s size=%d total=%d", s.id, len(data), s.buffer.Len())
}

// handleControl dispatches a text frame. Malformed or unknown frames are
// contained: logged and ignored, the loop continues.
func (s *Session) handleControl(ctx context.Context, w frameWriter, data []byte) {
	var msg protocol.Control
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warnf("[session] malformed control frame session=%s: %v", s.id, err)
		return
	}

	switch msg.Type {
	case protocol.TypeStartAudio:
		s.startRecording()
	case protocol.TypeStopAudio:
		ack := s.stopRecording(ctx)
		if err := w.WriteJSON(ack); err != nil {
			s.logger.Errorf("[session] ack send failed session=%s: %v", s.id, err)
		}
	default:
		s.logger.Debugf("[session] ignoring control type=%q session=%s", msg.Type, s.id)
	}
}

// startRecording opens a fresh recording cycle: the buffer is always reset,
// even mid-recording, and the owner is snapshotted for upload attribution.
func (s *Session) startRecording() {
	s.buffer.Reset()
	s.dropped = 0
	s.recording = true
	s.owner = s.ownerFn()
	s.logger.Infof("[session] start recording session=%s owner=%q", s.id, s.owner)
}

// stopRecording finalizes the buffer, persists it, attempts the upload,
// and builds the acknowledgment. The work is synchronous so the ack
// reflects the final outcome.
func (s *Session) stopRecording(ctx context.Context) protocol.AudioSaved {
	s.recording = false
	pcm := s.buffer.Bytes()
	if s.dropped > 0 {
		s.logger.Warnf("[session] recording truncated session=%s kept=%d dropped=%d", s.id, len(pcm), s.dropped)
	}

	ack := protocol.AudioSaved{Type: protocol.TypeAudioSaved}

	path, err := s.writer.Write(pcm)
	s.buffer.Reset()
	if errors.Is(err, recording.ErrNoAudio) {
		s.logger.Infof("[session] no audio to save session=%s", s.id)
		ack.Outcome = protocol.OutcomeNoAudio
		return ack
	}
	if err != nil {
		s.logger.Errorf("[session] persist failed session=%s: %v", s.id, err)
		ack.Outcome = protocol.OutcomeSaveFailed
		return ack
	}

	ack.Success = true
	ack.LocalPath = &path
	ack.Outcome = protocol.OutcomeSaved

	result := s.uploader.Upload(ctx, path, s.owner)
	if result.Status == upload.StatusUploaded {
		ack.Outcome = protocol.OutcomeUploaded
		url := result.URL
		ack.S3URL = &url
	}

	return ack
}

// close runs the teardown hook exactly once, no matter how many paths
// reach it.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		if s.onClose != nil {
			s.onClose()
		}
	})
}
