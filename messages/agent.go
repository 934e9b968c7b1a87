package messages

import (
	"errors"
	"fmt"
	"strconv"
)

// Agent control message types
const (
	TypeSettings             = "Settings"
	TypeWelcome              = "Welcome"
	TypeSettingsApplied      = "SettingsApplied"
	TypeUserStartedSpeaking  = "UserStartedSpeaking"
	TypeAgentThinking        = "AgentThinking"
	TypeAgentStartedSpeaking = "AgentStartedSpeaking"
	TypeAgentAudioDone       = "AgentAudioDone"
	TypeConversationText     = "ConversationText"
	TypeFunctionCallRequest  = "FunctionCallRequest"
	TypeFunctionCallResponse = "FunctionCallResponse"
	TypeError                = "Error"
	TypeWarning              = "Warning"
)

// UnknownCallField fills the id or name of a response whose request
// could not be read that far.
const UnknownCallField = "unknown"

// AgentMessage is the envelope every agent text frame shares.
type AgentMessage struct {
	Type string `json:"type"`
}

// FunctionCallRequest asks the bridge to run one or more functions.
type FunctionCallRequest struct {
	Type      string         `json:"type"`
	Functions []FunctionCall `json:"functions"`
}

// FunctionCall is a single requested invocation. Arguments is itself a
// JSON document encoded as a string. DecodeErr is set when the entry could
// not be decoded; ID and Name then hold whatever could be recovered.
type FunctionCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	DecodeErr error  `json:"-"`
}

// rawEntry defers decoding of one batch entry.
type rawEntry []byte

func (r *rawEntry) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

// FunctionCallResponse carries the JSON-encoded result of one call.
type FunctionCallResponse struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// AgentNotice covers the Error and Warning messages.
type AgentNotice struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Code        string `json:"code,omitempty"`
}

// ParseAgentMessage reads the type of an agent text frame.
func ParseAgentMessage(data []byte) (*AgentMessage, error) {
	var msg AgentMessage
	if err := Decode(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		return nil, errors.New("agent message missing 'type' field")
	}
	return &msg, nil
}

// ParseFunctionCallRequest decodes a batch entry by entry, so a malformed
// call is reported on that call alone. Only an undecodable envelope is an
// error.
func ParseFunctionCallRequest(data []byte) (*FunctionCallRequest, error) {
	var env struct {
		Type      string     `json:"type"`
		Functions []rawEntry `json:"functions"`
	}
	if err := Decode(data, &env); err != nil {
		return nil, err
	}

	req := &FunctionCallRequest{
		Type:      env.Type,
		Functions: make([]FunctionCall, 0, len(env.Functions)),
	}
	for _, raw := range env.Functions {
		req.Functions = append(req.Functions, parseFunctionCall(raw))
	}
	return req, nil
}

func parseFunctionCall(raw []byte) FunctionCall {
	var call FunctionCall
	err := json.Unmarshal(raw, &call)
	if err == nil {
		return call
	}

	var loose map[string]any
	_ = json.Unmarshal(raw, &loose)
	return FunctionCall{
		ID:        looseString(loose["id"]),
		Name:      looseString(loose["name"]),
		DecodeErr: fmt.Errorf("decode function call: %w", err),
	}
}

func looseString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func NewFunctionCallResponse(id, name, content string) *FunctionCallResponse {
	if id == "" {
		id = UnknownCallField
	}
	if name == "" {
		name = UnknownCallField
	}
	return &FunctionCallResponse{
		Type:    TypeFunctionCallResponse,
		ID:      id,
		Name:    name,
		Content: content,
	}
}
