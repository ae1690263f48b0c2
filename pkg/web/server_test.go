package web

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/control"
	"github.com/teslashibe/go-face/pkg/face/facetest"
	"github.com/teslashibe/go-face/pkg/gaze"
	"github.com/teslashibe/go-face/pkg/metrics"
	"github.com/teslashibe/go-face/pkg/protocol"
)

type env struct {
	face    *facetest.Face
	stream  *Stream
	server  *Server
	metrics *metrics.Collector
}

func newEnv(t *testing.T) *env {
	t.Helper()
	f := facetest.New(t)
	stream := NewStream(f.Head.Space.Names(), log.Discard())
	f.Loop.AtFrameEnd("publish", func(float64) {
		stream.Publish(f.Loop.Frames(), f.Manager.Weights())
	})
	collector := metrics.New(false)
	f.Loop.AddObserver(collector)
	f.Manager.SetObserver(collector)
	f.Run(t)

	ctl := control.New(f.Loop, f.Manager, log.Discard())
	return &env{
		face:    f,
		stream:  stream,
		server:  NewServer(Config{}, ctl, stream, collector, log.Discard()),
		metrics: collector,
	}
}

func (e *env) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.server.App().Test(req, 2000)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	code, body := e.do(t, "GET", "/health", "")
	assert.Equal(t, 200, code)
	assert.Equal(t, "ok", body["status"])
}

func TestEmotionEndpoint(t *testing.T) {
	e := newEnv(t)

	code, _ := e.do(t, "POST", "/api/emotion", `{"emotion":"happiness","intensity":70}`)
	require.Equal(t, 200, code)
	require.Eventually(t, func() bool { return e.face.Weight(t, 0) == 70 }, 2*time.Second, time.Millisecond)

	code, body := e.do(t, "GET", "/api/state", "")
	require.Equal(t, 200, code)
	assert.Equal(t, "happiness", body["emotion"].(map[string]any)["name"])
}

func TestBadCommandsReturn400(t *testing.T) {
	e := newEnv(t)

	code, body := e.do(t, "POST", "/api/emotion", `{"emotion":"gazeup","intensity":70}`)
	assert.Equal(t, 400, code)
	assert.NotEmpty(t, body["error"])

	code, _ = e.do(t, "POST", "/api/gaze/mode", `{"mode":"sideways"}`)
	assert.Equal(t, 400, code)

	code, _ = e.do(t, "POST", "/api/lipsync", `{not json`)
	assert.Equal(t, 400, code)
}

func TestGazeAndEnableEndpoints(t *testing.T) {
	e := newEnv(t)

	code, _ := e.do(t, "POST", "/api/gaze/mode", `{"mode":"scripted","agent":true}`)
	require.Equal(t, 200, code)
	code, _ = e.do(t, "POST", "/api/gaze/target", `{"position":[0,1,4]}`)
	require.Equal(t, 200, code)
	code, _ = e.do(t, "POST", "/api/enable", `{"enabled":false}`)
	require.Equal(t, 200, code)

	_, body := e.do(t, "GET", "/api/state", "")
	assert.Equal(t, false, body["enabled"])
	g := body["gaze"].(map[string]any)
	assert.Equal(t, "scripted", g["mode"])
	assert.Equal(t, true, g["agent"])
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t)
	require.Eventually(t, func() bool {
		var n uint64
		_ = e.face.Loop.Do(context.Background(), func() { n = e.face.Loop.Frames() })
		return n > 0
	}, time.Second, time.Millisecond)

	resp, err := e.server.App().Test(httptest.NewRequest("GET", "/metrics", nil), 2000)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(body), "face_frames_total")
}

func TestWeightsSocket(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go e.stream.Dashboard().Run(ctx)
	require.Eventually(t, e.stream.Dashboard().IsRunning, time.Second, time.Millisecond)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go e.server.App().Listener(ln)
	t.Cleanup(func() { e.server.App().Shutdown() })

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws/weights", nil)
	require.NoError(t, err)
	defer ws.Close()

	// await reads until match accepts a message or the deadline passes.
	await := func(match func(*protocol.Message) bool) bool {
		deadline := time.Now().Add(3 * time.Second)
		for time.Now().Before(deadline) {
			ws.SetReadDeadline(deadline)
			_, data, err := ws.ReadMessage()
			if err != nil {
				return false
			}
			msg, err := protocol.ParseMessage(data)
			if err == nil && match(msg) {
				return true
			}
		}
		return false
	}

	var sawState bool
	require.True(t, await(func(m *protocol.Message) bool {
		if m.Type == protocol.TypeState {
			sawState = true
			return false
		}
		w, err := m.GetWeightsData()
		return sawState && m.Type == protocol.TypeWeights && err == nil && len(w.Channels) == e.face.Head.Space.Total()
	}))

	cmd, err := protocol.NewEmotionMessage("anger", 30)
	require.NoError(t, err)
	data, err := cmd.Bytes()
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, data))

	assert.True(t, await(func(m *protocol.Message) bool {
		w, err := m.GetWeightsData()
		return m.Type == protocol.TypeWeights && err == nil && len(w.Weights) > 1 && w.Weights[1] == 30
	}))
}

func TestStreamIdleWithoutSubscribers(t *testing.T) {
	s := NewStream([]string{"a", "b"}, log.Discard())
	s.SetLookAt(gaze.LookAt{Weight: 1})
	s.Publish(1, []float64{1, 2})
	assert.Nil(t, s.last)
	assert.Nil(t, s.lookAt)
	assert.Zero(t, s.Subscribers())
}

func TestUpgradeRequired(t *testing.T) {
	e := newEnv(t)
	code, _ := e.do(t, "GET", "/ws/weights", "")
	assert.Equal(t, fiber.StatusUpgradeRequired, code)
}
