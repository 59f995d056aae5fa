package protocol

// Frame types exchanged with the mobile client. Control frames are JSON
// text; audio arrives as raw binary frames on the same connection.
const (
	TypeServerMessage = "server_message"
	TypeStartAudio    = "start_audio"
	TypeStopAudio     = "stop_audio"
	TypeAudioSaved    = "audio_saved"
)

// GreetingText is sent once per connection, immediately after accept.
const GreetingText = "Mobile connected successfully"

// Control is the envelope every inbound text frame must parse into.
type Control struct {
	Type string `json:"type"`
}

// ServerMessage is the greeting frame.
type ServerMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Outcome distinguishes the four possible results of a stop_audio request.
type Outcome string

const (
	OutcomeNoAudio    Outcome = "no_audio"
	OutcomeSaved      Outcome = "saved"
	OutcomeUploaded   Outcome = "uploaded"
	OutcomeSaveFailed Outcome = "save_failed"
)

// AudioSaved acknowledges a stop_audio request. Success tracks local
// persistence only; a failed or skipped upload leaves S3URL null without
// invalidating the save.
type AudioSaved struct {
	Type      string  `json:"type"`
	Outcome   Outcome `json:"outcome"`
	LocalPath *string `json:"local_path"`
	S3URL     *string `json:"s3_url"`
	Success   bool    `json:"success"`
}

// NewGreeting builds the connection greeting frame.
func NewGreeting() ServerMessage {
	return ServerMessage{Type: TypeServerMessage, Text: GreetingText}
}
