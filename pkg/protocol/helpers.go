package protocol

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewWeightsMessage creates a weights message for one frame
func NewWeightsMessage(frame uint64, weights []float64, channels []string) (*Message, error) {
	return NewMessage(TypeWeights, WeightsData{
		Frame:    frame,
		Weights:  weights,
		Channels: channels,
	})
}

// NewLookAtMessage creates a look-at message
func NewLookAtMessage(weight, body, head float64, position [3]float64) (*Message, error) {
	return NewMessage(TypeLookAt, LookAtData{
		Weight:     weight,
		BodyWeight: body,
		HeadWeight: head,
		Position:   position,
	})
}

// NewStateMessage wraps a face snapshot
func NewStateMessage(state any) (*Message, error) {
	return NewMessage(TypeState, state)
}

// NewEmotionMessage creates an emotion command message
func NewEmotionMessage(emotion string, intensity float64) (*Message, error) {
	return NewMessage(TypeEmotion, EmotionCommand{
		Emotion:   emotion,
		Intensity: intensity,
	})
}

// NewGazeModeMessage creates a gaze mode command message
func NewGazeModeMessage(mode string, agent *bool) (*Message, error) {
	return NewMessage(TypeGazeMode, GazeModeCommand{Mode: mode, Agent: agent})
}

// NewGazeTargetMessage creates a scripted gaze target message
func NewGazeTargetMessage(position [3]float64) (*Message, error) {
	return NewMessage(TypeGazeTarget, GazeTargetCommand{Position: position})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: 0, // Will be set by NewMessage
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// NewErrorMessage reports that a message of type ref failed with err
func NewErrorMessage(ref MessageType, err error) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Ref: ref, Message: err.Error()})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetWeightsData extracts weights from a message
func (m *Message) GetWeightsData() (*WeightsData, error) {
	var data WeightsData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetEmotionCommand extracts an emotion command from a message
func (m *Message) GetEmotionCommand() (*EmotionCommand, error) {
	var data EmotionCommand
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetGazeModeCommand extracts a gaze mode command from a message
func (m *Message) GetGazeModeCommand() (*GazeModeCommand, error) {
	var data GazeModeCommand
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetGazeTargetCommand extracts a gaze target command from a message
func (m *Message) GetGazeTargetCommand() (*GazeTargetCommand, error) {
	var data GazeTargetCommand
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetLipSyncCommand extracts a lip-sync command from a message
func (m *Message) GetLipSyncCommand() (*LipSyncCommand, error) {
	var data LipSyncCommand
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetEnableCommand extracts an enable command from a message
func (m *Message) GetEnableCommand() (*EnableCommand, error) {
	var data EnableCommand
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
