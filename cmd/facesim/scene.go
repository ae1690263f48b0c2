package main

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"

	"github.com/teslashibe/go-face/pkg/interest"
)

const (
	sceneRate     = beep.SampleRate(22050)
	visitorPeriod = 20.0
	radioEvery    = 12.0
	radioBurst    = 4 * time.Second
)

// scene is the demo world around the character. A visitor walks in and
// out of view, a radio plays tone bursts and a picture hangs on the wall.
type scene struct {
	visitor *interest.Object
	radio   *interest.Object
	picture *interest.Object
	objects []interest.Candidate

	emitter *interest.StreamEmitter
	elapsed float64
	lastOn  float64
}

func newScene() (*scene, error) {
	s := &scene{
		visitor: interest.NewObject("visitor", mgl64.Vec3{0, 1.6, 1.5}),
		radio:   interest.NewObject("radio", mgl64.Vec3{-0.9, 1.1, 1.4}),
		picture: interest.NewObject("picture", mgl64.Vec3{0.7, 1.7, 2.8}),
	}
	s.objects = []interest.Candidate{s.visitor, s.radio, s.picture}
	if err := s.playRadio(); err != nil {
		return nil, err
	}
	return s, nil
}

// Candidates lists the objects the character may notice.
func (s *scene) Candidates() []interest.Candidate { return s.objects }

// Update moves the visitor and keeps the radio going. Runs on the loop.
func (s *scene) Update(dt float64) {
	s.elapsed += dt

	phase := 2 * math.Pi * s.elapsed / visitorPeriod
	s.visitor.MoveTo(mgl64.Vec3{2.5 * math.Sin(phase), 1.6, 1.5 + 0.5*math.Cos(phase)})
	// The visitor steps out of the room for the last tenth of each lap.
	s.visitor.SetActive(math.Mod(s.elapsed, visitorPeriod) < 0.9*visitorPeriod)

	if s.emitter != nil {
		s.emitter.Advance(dt)
	}
	if s.elapsed-s.lastOn >= radioEvery {
		_ = s.playRadio()
	}
}

func (s *scene) playRadio() error {
	tone, err := generators.SineTone(sceneRate, 330)
	if err != nil {
		return err
	}
	burst := beep.Take(sceneRate.N(radioBurst), tone)
	if s.emitter == nil {
		s.emitter = interest.NewStreamEmitter(burst, sceneRate, 0.8)
		s.radio.AttachEmitter(s.emitter)
	} else {
		s.emitter.Play(burst)
	}
	s.lastOn = s.elapsed
	return nil
}
