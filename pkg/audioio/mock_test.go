package audioio

import (
	"context"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond
	return cfg
}

func TestMockSource_StartStop(t *testing.T) {
	src := NewMockSource(testConfig(), nil)
	defer src.Close()

	ctx := context.Background()
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}
	if err := src.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := src.Stop(); err != nil {
		t.Fatalf("Second Stop failed: %v", err)
	}
}

func TestMockSource_Stream(t *testing.T) {
	cfg := testConfig()
	src := NewMockSource(cfg, nil, WithSineWave(440, 0.5))
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case chunk := <-src.Stream():
		if len(chunk.Samples) != cfg.BufferSize()*cfg.Channels {
			t.Errorf("Expected %d samples, got %d", cfg.BufferSize(), len(chunk.Samples))
		}
		if CalculateRMS(chunk.Samples) == 0 {
			t.Error("Expected a non-silent chunk")
		}
	case <-ctx.Done():
		t.Fatal("no chunk delivered")
	}

	if stats := src.Stats(); !stats.Running || stats.Backend != "mock" {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestMockSource_SpeechHasPauses(t *testing.T) {
	cfg := testConfig()
	src := NewMockSource(cfg, nil, WithSpeech(200, 0.8, 4))

	// One second of audio: syllable 3 (0.75s..1s) is a pause.
	var loud, silent int
	for i := 0; i < 100; i++ {
		c := src.Generate()
		if CalculateRMS(c.Samples) > 0.01 {
			loud++
		} else {
			silent++
		}
	}
	if loud == 0 || silent == 0 {
		t.Errorf("expected both loud and silent chunks, got loud=%d silent=%d", loud, silent)
	}
}

func TestStreamSource_Drains(t *testing.T) {
	cfg := testConfig()
	rate := beep.SampleRate(cfg.SampleRate)
	tone, err := generators.SineTone(rate, 300)
	if err != nil {
		t.Fatalf("SineTone: %v", err)
	}
	src := NewStreamSource(cfg, beep.Take(rate.N(35*time.Millisecond), tone), rate, nil)

	chunks := 0
	for {
		c, ok := src.Next()
		if len(c.Samples) > 0 {
			chunks++
		}
		if !ok {
			break
		}
	}
	if chunks != 4 {
		t.Errorf("expected 4 chunks for 35ms at 10ms buffers, got %d", chunks)
	}
}

func TestNewSourceValidates(t *testing.T) {
	cfg := testConfig()
	cfg.Backend = BackendStream
	if _, err := NewSource(cfg, nil); err == nil {
		t.Error("expected error for stream backend without file")
	}

	cfg.Backend = "alsa"
	if _, err := NewSource(cfg, nil); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg = testConfig()
	src, err := NewSource(cfg, nil)
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	src.Close()
}
