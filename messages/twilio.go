package messages

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// Twilio media stream events
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventStop      = "stop"
	EventMark      = "mark"
	EventDTMF      = "dtmf"
	EventClear     = "clear"
)

// TrackInbound is the caller's side of the call.
const TrackInbound = "inbound"

// ErrMissingStreamSid is returned when a start event carries no stream SID.
var ErrMissingStreamSid = errors.New("start event missing streamSid")

// TwilioEvent is one JSON frame received on the media stream websocket.
type TwilioEvent struct {
	Event          string     `json:"event"`
	SequenceNumber string     `json:"sequenceNumber,omitempty"`
	StreamSid      string     `json:"streamSid,omitempty"`
	Start          *StartData `json:"start,omitempty"`
	Media          *MediaData `json:"media,omitempty"`
	Stop           *StopData  `json:"stop,omitempty"`
	Mark           *MarkData  `json:"mark,omitempty"`
	DTMF           *DTMFData  `json:"dtmf,omitempty"`
}

type StartData struct {
	AccountSid       string            `json:"accountSid,omitempty"`
	StreamSid        string            `json:"streamSid"`
	CallSid          string            `json:"callSid,omitempty"`
	Tracks           []string          `json:"tracks,omitempty"`
	MediaFormat      *MediaFormat      `json:"mediaFormat,omitempty"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

type MediaData struct {
	Track     string `json:"track"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"` // Base64-encoded mu-law audio
}

type StopData struct {
	AccountSid string `json:"accountSid,omitempty"`
	CallSid    string `json:"callSid,omitempty"`
}

type MarkData struct {
	Name string `json:"name"`
}

type DTMFData struct {
	Track string `json:"track"`
	Digit string `json:"digit"`
}

// ParseTwilioEvent decodes a media stream frame.
func ParseTwilioEvent(data []byte) (*TwilioEvent, error) {
	var evt TwilioEvent
	if err := Decode(data, &evt); err != nil {
		return nil, err
	}
	if evt.Event == "" {
		return nil, errors.New("twilio message missing 'event' field")
	}
	return &evt, nil
}

// StreamID returns the stream SID announced by a start event.
func (e *TwilioEvent) StreamID() (string, error) {
	if e.Start != nil && e.Start.StreamSid != "" {
		return e.Start.StreamSid, nil
	}
	if e.StreamSid != "" {
		return e.StreamSid, nil
	}
	return "", ErrMissingStreamSid
}

// Audio decodes the payload of a media event.
func (e *TwilioEvent) Audio() ([]byte, error) {
	if e.Media == nil {
		return nil, errors.New("media event missing media data")
	}
	audio, err := base64.StdEncoding.DecodeString(e.Media.Payload)
	if err != nil {
		return nil, fmt.Errorf("invalid media payload: %w", err)
	}
	return audio, nil
}

// IsInbound reports whether a media event carries caller audio.
func (e *TwilioEvent) IsInbound() bool {
	return e.Media != nil && e.Media.Track == TrackInbound
}

type Media struct {
	Payload string `json:"payload"` // Base64-encoded mu-law audio data
}

// TwilioMediaMessage plays audio back into the call.
type TwilioMediaMessage struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
	Media     Media  `json:"media"`
}

// TwilioClearMessage drops any audio Twilio has buffered for playback.
type TwilioClearMessage struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
}

func NewTwilioMediaMessage(streamSid string, audio []byte) *TwilioMediaMessage {
	return &TwilioMediaMessage{
		Event:     EventMedia,
		StreamSid: streamSid,
		Media:     Media{Payload: base64.StdEncoding.EncodeToString(audio)},
	}
}

func NewTwilioClearMessage(streamSid string) *TwilioClearMessage {
	return &TwilioClearMessage{
		Event:     EventClear,
		StreamSid: streamSid,
	}
}
