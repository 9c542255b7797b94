package server

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawnarena/config"
	"pawnarena/pawn"
)

type fakeSender struct {
	mu     sync.Mutex
	msgs   [][]byte
	closed bool
}

func (s *fakeSender) Enqueue(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, b)
}

func (s *fakeSender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSender) last(t *testing.T) StateMessage {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.msgs)
	var msg StateMessage
	require.NoError(t, json.Unmarshal(s.msgs[len(s.msgs)-1], &msg))
	return msg
}

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	r, err := NewRoom("test", config.Default())
	require.NoError(t, err)
	return r
}

func TestNewRoomRejectsBadWorld(t *testing.T) {
	cfg := config.Default()
	cfg.World.Boxes[0].Max = cfg.World.Boxes[0].Min
	_, err := NewRoom("bad", cfg)
	require.Error(t, err)
}

func TestNewRoomRejectsUnevenFrameRate(t *testing.T) {
	cfg := config.Default()
	cfg.Room.TicksPerSecond = 60
	cfg.Room.FramesPerSecond = 45
	_, err := NewRoom("uneven", cfg)
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestStoppedRoomDoesNotBlockCallers(t *testing.T) {
	r := newTestRoom(t)
	r.StopTicker()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < cap(r.joinChan)+5; i++ {
			if r.JoinPlayer("alice", nil, 0) {
				t.Errorf("join accepted after stop")
				return
			}
		}
		for i := 0; i < cap(r.leaveChan)+5; i++ {
			r.RequestLeave("alice", nil)
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("join/leave blocked on a stopped room")
	}
}

func TestJoinMoveAndBroadcast(t *testing.T) {
	r := newTestRoom(t)
	s := &fakeSender{}
	r.JoinPlayer("alice", s, 0)
	r.OnInput(Input{PlayerID: "alice", Seq: 1, Move: mgl64.Vec3{1, 0, 0}})

	r.Step()
	require.Contains(t, r.Players, PlayerID("alice"))
	p := r.Players["alice"]
	assert.Equal(t, pawn.WatermelonURL, p.Pawn.Model.URL)
	assert.InDelta(t, pawn.WalkSpeed/60, p.Pawn.Position.X(), 1e-9)
	assert.Empty(t, s.msgs, "no frame on odd tick")

	// 输入方向保持，第二个 Tick 继续移动并广播画面
	r.Step()
	assert.InDelta(t, 2*pawn.WalkSpeed/60, p.Pawn.Position.X(), 1e-9)

	msg := s.last(t)
	assert.Equal(t, "state", msg.Type)
	assert.Equal(t, int64(2), msg.Tick)
	require.Len(t, msg.Players, 1)
	assert.Equal(t, "alice", msg.Players[0].ID)
	require.NotNil(t, msg.View)
	assert.Equal(t, "alice", msg.View.Camera.Viewer)
	assert.InDelta(t, pawn.VerticalFieldOfView(90), msg.View.Camera.FOV, 1e-9)
	assert.Equal(t, "incorrect", msg.View.Verdict)
	assert.NotEmpty(t, msg.View.Debug)

	snap := r.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap["inputs_accepted"])
	assert.Equal(t, int64(2), snap["moves_committed"])
	assert.Equal(t, int64(1), snap["frame_count"])
	assert.Equal(t, int64(1), snap["strikes_incorrect"])
}

func TestPlayerFOVPreference(t *testing.T) {
	r := newTestRoom(t)
	s := &fakeSender{}
	r.JoinPlayer("bob", s, 60)
	r.Step()
	r.Step()
	assert.InDelta(t, pawn.VerticalFieldOfView(60), s.last(t).View.Camera.FOV, 1e-9)

	assert.Equal(t, 60.0, prefs{player: 60, room: 90}.FieldOfView())
	assert.Equal(t, 90.0, prefs{room: 90}.FieldOfView())
}

func TestLookAccumulatesAcrossInputs(t *testing.T) {
	r := newTestRoom(t)
	r.JoinPlayer("alice", nil, 0)
	r.OnInput(Input{PlayerID: "alice", Seq: 1, Look: pawn.Angles{Yaw: 200}})
	r.OnInput(Input{PlayerID: "alice", Seq: 2, Look: pawn.Angles{Yaw: 200}})
	r.Step()
	assert.InDelta(t, 40, r.Players["alice"].Pawn.ViewAngles.Yaw, 1e-9)
}

func TestInputFiltering(t *testing.T) {
	r := newTestRoom(t)
	require.NoError(t, r.SetTunables(config.Tunables{MaxInputsPerTick: 2, FieldOfView: 90}))
	r.JoinPlayer("alice", nil, 0)
	r.Step()

	r.OnInput(Input{PlayerID: "alice", Seq: 1})
	r.OnInput(Input{PlayerID: "alice", Seq: 2})
	r.OnInput(Input{PlayerID: "alice", Seq: 3})
	r.OnInput(Input{PlayerID: "ghost", Seq: 1})
	r.Step()

	r.OnInput(Input{PlayerID: "alice", Seq: 2})
	r.OnInput(Input{PlayerID: "alice", Seq: 4})
	r.Step()

	snap := r.Metrics().Snapshot()
	assert.Equal(t, int64(3), snap["inputs_accepted"])
	assert.Equal(t, int64(1), snap["rate_limited"])
	assert.Equal(t, int64(1), snap["old_seq_ignored"])
	assert.Equal(t, int64(4), r.Players["alice"].lastSeq)

	assert.Error(t, r.SetTunables(config.Tunables{MaxInputsPerTick: 0, FieldOfView: 90}))
}

func TestInputChannelFull(t *testing.T) {
	r := newTestRoom(t)
	for i := 0; i < cap(r.inputChan)+5; i++ {
		r.OnInput(Input{PlayerID: "alice"})
	}
	assert.Equal(t, int64(5), r.Metrics().Snapshot()["chan_full_discarded"])
}

func TestAttackSpawnsAndExpiresProp(t *testing.T) {
	r := newTestRoom(t)
	r.JoinPlayer("alice", nil, 0)
	r.OnInput(Input{PlayerID: "alice", Seq: 1, Buttons: pawn.ButtonAttack1})
	r.Step()
	assert.Equal(t, 1, r.world.PropCount())

	// 按住不放不会重复生成
	r.Step()
	r.Step()
	assert.Equal(t, 1, r.world.PropCount())

	r.OnInput(Input{PlayerID: "alice", Seq: 2})
	r.OnInput(Input{PlayerID: "alice", Seq: 3, Buttons: pawn.ButtonAttack1})
	r.Step()
	// 同一 Tick 内最后一次输入生效，按键仍为按住状态
	assert.Equal(t, 1, r.world.PropCount())

	for i := 0; i < 10*60+10; i++ {
		r.Step()
	}
	assert.Equal(t, 0, r.world.PropCount())
	snap := r.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap["props_spawned"])
	assert.Equal(t, int64(1), snap["props_expired"])
}

func TestLeaveAndReplace(t *testing.T) {
	r := newTestRoom(t)
	s1, s2 := &fakeSender{}, &fakeSender{}
	r.JoinPlayer("alice", s1, 0)
	r.Step()
	r.JoinPlayer("alice", s2, 0)
	r.Step()
	assert.True(t, s1.closed)
	assert.Same(t, s2, r.Players["alice"].Conn)

	// 旧连接的离开请求不影响新连接
	r.RequestLeave("alice", s1)
	r.Step()
	require.Contains(t, r.Players, PlayerID("alice"))

	r.RequestLeave("alice", s2)
	r.Step()
	assert.NotContains(t, r.Players, PlayerID("alice"))
	assert.True(t, s2.closed)
}

func TestDebugOverlayToggle(t *testing.T) {
	r := newTestRoom(t)
	require.NoError(t, r.SetTunables(config.Tunables{MaxInputsPerTick: 8, FieldOfView: 90, DebugOverlay: false}))
	s := &fakeSender{}
	r.JoinPlayer("alice", s, 0)
	r.Step()
	r.Step()
	msg := s.last(t)
	require.NotNil(t, msg.View)
	assert.Empty(t, msg.View.Debug)
	assert.Equal(t, 0, len(r.Players["alice"].Overlay.Drain()))
}

func TestParseInput(t *testing.T) {
	in, err := ParseInput("alice", []byte(`{"type":"input","seq":7,"move":[1,2,0],"look":[1.5,-3,0],"buttons":["run","attack1","jump"]}`))
	require.NoError(t, err)
	assert.Equal(t, PlayerID("alice"), in.PlayerID)
	assert.Equal(t, int64(7), in.Seq)
	assert.Equal(t, mgl64.Vec3{1, 2, 0}, in.Move)
	assert.Equal(t, pawn.Angles{Pitch: 1.5, Yaw: -3}, in.Look)
	assert.Equal(t, pawn.ButtonRun|pawn.ButtonAttack1, in.Buttons)

	_, err = ParseInput("alice", []byte(`{"type":"ping"}`))
	assert.ErrorIs(t, err, ErrNotInput)

	_, err = ParseInput("alice", []byte(`{`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotInput)
}
