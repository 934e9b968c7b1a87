package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/room4-2/agentbridge/messages"
)

// Twilio sends 20ms of 8kHz mu-law per media event.
const chunkSize = 160

// AudioPlayer streams mu-law audio via sox
type AudioPlayer struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	mu     sync.Mutex
	closed bool
}

// NewAudioPlayer starts sox reading raw mu-law from stdin.
func NewAudioPlayer() (*AudioPlayer, error) {
	cmd := exec.Command("sox",
		"-t", "raw",
		"-r", "8000",
		"-b", "8",
		"-c", "1",
		"-e", "mu-law",
		"-",
		"-d",
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("sox stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start sox: %w", err)
	}

	return &AudioPlayer{cmd: cmd, stdin: stdin}, nil
}

func (p *AudioPlayer) Play(audioData []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	_, _ = p.stdin.Write(audioData)
}

func (p *AudioPlayer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	_ = p.stdin.Close()
	_ = p.cmd.Wait()
}

// send writes one Twilio event
func send(conn *websocket.Conn, v any) error {
	data, err := messages.Encode(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func main() {
	// Flags
	serverURL := flag.String("server", "ws://localhost:5000/stream", "Bridge media stream URL")
	audioFile := flag.String("file", "", "Audio file to stream (raw 8kHz mu-law or WAV)")
	play := flag.Bool("play", false, "Play agent audio through sox")
	wait := flag.Duration("wait", 30*time.Second, "How long to listen after the audio is sent")
	flag.Parse()
	if *audioFile == "" {
		log.Fatal("-file is required")
	}

	streamSid := "MZ" + uuid.NewString()
	log.Printf("🔌 Connecting to %s as %s...", *serverURL, streamSid)

	// Connect to server
	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	log.Println("✅ Connected!")

	var player *AudioPlayer
	if *play {
		if player, err = NewAudioPlayer(); err != nil {
			log.Fatalf("Failed to create audio player (is sox installed?): %v", err)
		}
		defer player.Close()
	}

	// Handle interrupt
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	var mediaCount, clearCount atomic.Int64
	done := make(chan struct{})

	// Read what the bridge plays into the call
	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}

			evt, err := messages.ParseTwilioEvent(message)
			if err != nil {
				log.Println("Parse error:", err)
				continue
			}

			switch evt.Event {
			case messages.EventMedia:
				audio, err := evt.Audio()
				if err != nil {
					log.Println("Bad media payload:", err)
					continue
				}
				mediaCount.Add(1)
				if player != nil {
					player.Play(audio)
				}

			case messages.EventClear:
				clearCount.Add(1)
				log.Println("🛑 Barge-in: playback cleared")

			default:
				log.Printf("📨 %s", message)
			}
		}
	}()

	audioData, err := loadAudioFile(*audioFile)
	if err != nil {
		log.Fatalf("Failed to load audio: %v", err)
	}

	events := []any{
		map[string]any{"event": messages.EventConnected, "protocol": "Call", "version": "1.0.0"},
		messages.TwilioEvent{
			Event:     messages.EventStart,
			StreamSid: streamSid,
			Start: &messages.StartData{
				StreamSid:   streamSid,
				CallSid:     "CA" + uuid.NewString(),
				Tracks:      []string{messages.TrackInbound},
				MediaFormat: &messages.MediaFormat{Encoding: "audio/x-mulaw", SampleRate: 8000, Channels: 1},
			},
		},
	}
	for _, evt := range events {
		if err := send(conn, evt); err != nil {
			log.Fatalf("Send error: %v", err)
		}
	}

	log.Printf("📤 Streaming %s (%d bytes)", *audioFile, len(audioData))

	// Send audio in 20ms chunks at real-time pace
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for i, seq := 0, 1; i < len(audioData); i, seq = i+chunkSize, seq+1 {
		chunk := audioData[i:min(i+chunkSize, len(audioData))]
		evt := messages.TwilioEvent{
			Event:          messages.EventMedia,
			SequenceNumber: fmt.Sprint(seq),
			StreamSid:      streamSid,
			Media: &messages.MediaData{
				Track:   messages.TrackInbound,
				Chunk:   fmt.Sprint(seq),
				Payload: base64.StdEncoding.EncodeToString(chunk),
			},
		}
		if err := send(conn, evt); err != nil {
			log.Printf("Send error: %v", err)
			break
		}
		<-ticker.C
	}

	log.Println("✅ Audio sent, listening for the agent...")

	// Wait for response or interrupt
	select {
	case <-done:
		log.Println("Connection closed")
	case <-interrupt:
		log.Println("\n👋 Interrupted, hanging up...")
	case <-time.After(*wait):
		log.Println("⏰ Done listening")
	}

	_ = send(conn, messages.TwilioEvent{Event: messages.EventStop, StreamSid: streamSid, Stop: &messages.StopData{}})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}

	log.Printf("📊 Received %d media events, %d clear events", mediaCount.Load(), clearCount.Load())
}

// loadAudioFile loads mu-law or WAV file and returns raw audio bytes
func loadAudioFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Check if it's a WAV file (starts with "RIFF")
	if len(data) > 44 && string(data[0:4]) == "RIFF" {
		// Skip WAV header (44 bytes for standard WAV)
		log.Println("📁 Detected WAV file, skipping header")
		return data[44:], nil
	}

	log.Println("📁 Detected raw mu-law file")
	return data, nil
}
