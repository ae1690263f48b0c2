// Package protocol defines the WebSocket message types exchanged between the
// face engine, renderers and control clients.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Engine → renderer/browser messages
	TypeWeights MessageType = "weights" // Blend-shape weights of one frame
	TypeLookAt  MessageType = "lookat"  // IK look-at request
	TypeState   MessageType = "state"   // Face snapshot

	// Client → engine messages
	TypeEmotion    MessageType = "emotion"      // Request an emotion
	TypeGazeMode   MessageType = "gaze_mode"    // Switch gaze behavior
	TypeGazeTarget MessageType = "gaze_target"  // Scripted gaze target
	TypeLipSync    MessageType = "lipsync_mode" // Lip-sync input settings
	TypeEnable     MessageType = "enable"       // Enable or disable the face

	// Bidirectional
	TypePing  MessageType = "ping"  // Health check
	TypePong  MessageType = "pong"  // Health check response
	TypeError MessageType = "error" // A command was rejected
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: %w", ErrMissingType)
	}
	return &msg, nil
}

// =============================================================================
// Engine → Renderer Message Types
// =============================================================================

// WeightsData carries the applied weight of every channel for one frame.
// Channels is set on the first frame published after a subscriber joins.
type WeightsData struct {
	Frame    uint64    `json:"frame"`
	Weights  []float64 `json:"weights"`
	Channels []string  `json:"channels,omitempty"`
}

// LookAtData mirrors the IK look-at request
type LookAtData struct {
	Weight     float64    `json:"weight"`
	BodyWeight float64    `json:"body_weight"`
	HeadWeight float64    `json:"head_weight"`
	Position   [3]float64 `json:"position"`
}

// =============================================================================
// Client → Engine Message Types
// =============================================================================

// EmotionCommand requests an emotion at an intensity in [0,100]
type EmotionCommand struct {
	Emotion   string  `json:"emotion"`
	Intensity float64 `json:"intensity"`
}

// GazeModeCommand switches gaze behavior and optionally agent mode
type GazeModeCommand struct {
	Mode  string `json:"mode"`
	Agent *bool  `json:"agent,omitempty"`
}

// GazeTargetCommand assigns the scripted gaze target in world space
type GazeTargetCommand struct {
	Position [3]float64 `json:"position"`
}

// LipSyncCommand changes the lip-sync input. Unset fields are left alone.
type LipSyncCommand struct {
	Mode       string `json:"mode,omitempty"`       // "realtime", "prerecorded"
	Processing *bool  `json:"processing,omitempty"` // false freezes the mouth
	Smoothing  *int   `json:"smoothing,omitempty"`  // 1-100
}

// EnableCommand enables or disables the face
type EnableCommand struct {
	Enabled bool `json:"enabled"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// ErrorData reports why a command was rejected
type ErrorData struct {
	Ref     MessageType `json:"ref,omitempty"` // Type of the rejected message
	Message string      `json:"message"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
