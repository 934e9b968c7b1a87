package deepgram

import (
	"fmt"
	"os"

	"github.com/room4-2/agentbridge/functions"
	"github.com/room4-2/agentbridge/messages"
)

// Settings is the first message of an agent session.
type Settings struct {
	Type  string        `json:"type"`
	Audio AudioSettings `json:"audio"`
	Agent AgentSettings `json:"agent"`
}

type AudioSettings struct {
	Input  AudioFormat `json:"input"`
	Output AudioFormat `json:"output"`
}

type AudioFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
	Container  string `json:"container,omitempty"`
}

type AgentSettings struct {
	Language string         `json:"language"`
	Listen   ListenSettings `json:"listen"`
	Think    ThinkSettings  `json:"think"`
	Speak    SpeakSettings  `json:"speak"`
	Greeting string         `json:"greeting,omitempty"`
}

type Provider struct {
	Type        string   `json:"type"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type ListenSettings struct {
	Provider Provider `json:"provider"`
}

type ThinkSettings struct {
	Provider  Provider                `json:"provider"`
	Prompt    string                  `json:"prompt"`
	Functions []functions.Declaration `json:"functions,omitempty"`
}

type SpeakSettings struct {
	Provider Provider `json:"provider"`
}

// DefaultSettings configures 8 kHz mu-law in both directions, matching
// Twilio media streams, and exposes every registered function.
func DefaultSettings(reg *functions.Registry) *Settings {
	temperature := 0.7
	return &Settings{
		Type: messages.TypeSettings,
		Audio: AudioSettings{
			Input:  AudioFormat{Encoding: "mulaw", SampleRate: 8000},
			Output: AudioFormat{Encoding: "mulaw", SampleRate: 8000, Container: "none"},
		},
		Agent: AgentSettings{
			Language: "en",
			Listen: ListenSettings{
				Provider: Provider{Type: "deepgram", Model: "nova-3"},
			},
			Think: ThinkSettings{
				Provider:  Provider{Type: "open_ai", Model: "gpt-4o-mini", Temperature: &temperature},
				Prompt:    BankingPrompt,
				Functions: reg.Declarations(),
			},
			Speak: SpeakSettings{
				Provider: Provider{Type: "deepgram", Model: "aura-2-thalia-en"},
			},
			Greeting: Greeting,
		},
	}
}

// LoadSettings returns the encoded Settings message. A non-empty path is
// read verbatim; otherwise DefaultSettings is encoded.
func LoadSettings(path string, reg *functions.Registry) ([]byte, error) {
	if path == "" {
		return messages.Encode(DefaultSettings(reg))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent settings: %w", err)
	}
	msg, err := messages.ParseAgentMessage(data)
	if err != nil {
		return nil, fmt.Errorf("agent settings %s: %w", path, err)
	}
	if msg.Type != messages.TypeSettings {
		return nil, fmt.Errorf("agent settings %s: type is %q, want %q", path, msg.Type, messages.TypeSettings)
	}
	return data, nil
}
