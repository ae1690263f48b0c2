package face

import (
	"github.com/teslashibe/go-face/pkg/expression"
	"github.com/teslashibe/go-face/pkg/gaze"
)

// EmotionState is the emotion shown.
type EmotionState struct {
	Name      string  `json:"name"`
	Intensity float64 `json:"intensity"`
}

// GazeState is the gaze behavior and aim.
type GazeState struct {
	Mode       gaze.Mode  `json:"mode"`
	Agent      bool       `json:"agent"`
	Aim        [3]float64 `json:"aim"`
	Angle      float64    `json:"angle"`
	Blink      float64    `json:"blink"`
	Selected   int        `json:"selected"`
	Candidates int        `json:"candidates"`
	Weights    []float64  `json:"weights"`
}

// LipSyncState is the lip-sync input and last visemes.
type LipSyncState struct {
	Mode       string             `json:"mode"`
	Processing bool               `json:"processing"`
	Smoothing  int                `json:"smoothing"`
	Visemes    map[string]float64 `json:"visemes"`
}

// Snapshot is a read-only view of a face for inspection.
type Snapshot struct {
	Frame    uint64               `json:"frame"`
	Time     float64              `json:"time"`
	Enabled  bool                 `json:"enabled"`
	Channels []string             `json:"channels"`
	Weights  []float64            `json:"weights"`
	Target   []float64            `json:"target"`
	Inputs   map[string][]float64 `json:"inputs"`
	Emotion  EmotionState         `json:"emotion"`
	Gaze     GazeState            `json:"gaze"`
	LipSync  LipSyncState         `json:"lipsync"`
}

// Weights returns the weights currently applied to the sink.
func (m *Manager) Weights() []float64 {
	out := make([]float64, m.space.Total())
	for i := range out {
		out[i] = m.sink.ChannelWeight(i)
	}
	return out
}

// Snapshot captures the face. It must run on the loop.
func (m *Manager) Snapshot() Snapshot {
	s := Snapshot{
		Frame:    m.loop.Frames(),
		Time:     m.loop.Scheduler().Now(),
		Enabled:  m.enabled,
		Channels: m.space.Names(),
		Weights:  m.Weights(),
		Target:   m.arbiter.Target(),
		Inputs:   make(map[string][]float64, numChannels),
	}
	for _, ch := range Channels() {
		s.Inputs[ch.String()] = m.arbiter.Input(ch)
	}

	if c, v, ok := m.emotion.Active(); ok {
		s.Emotion = EmotionState{Name: c.String(), Intensity: v}
	}

	sel := m.gaze.Selector()
	aim := sel.Aim().Position()
	s.Gaze = GazeState{
		Mode:       sel.Mode(),
		Agent:      sel.Agent(),
		Aim:        [3]float64{aim.X(), aim.Y(), aim.Z()},
		Blink:      m.gaze.Driver().Intensity(expression.Blink),
		Selected:   -1,
		Candidates: m.field.Len(),
		Weights:    sel.Weights(),
	}
	if i, ok := sel.Selected(); ok {
		s.Gaze.Selected = i
	}
	if eyes := m.gaze.Eyes(); eyes != nil {
		s.Gaze.Angle = eyes.Angle()
	}

	vis := m.lip.Visemes()
	s.LipSync = LipSyncState{
		Mode:       m.lip.Mode().String(),
		Processing: m.lip.Processing(),
		Smoothing:  m.lip.Smoothing(),
		Visemes:    make(map[string]float64, expression.NumVisemes),
	}
	for _, c := range expression.Visemes() {
		if v := vis.At(c); v > 0 {
			s.LipSync.Visemes[c.String()] = v
		}
	}
	return s
}
