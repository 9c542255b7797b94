package world

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/colornames"

	"pawnarena/pawn"
)

func testBoxes() []Box {
	return []Box{
		{Name: "floor", Min: mgl64.Vec3{-1000, -1000, -64}, Max: mgl64.Vec3{1000, 1000, 0}},
		{Name: "wall", Min: mgl64.Vec3{100, -1000, 0}, Max: mgl64.Vec3{132, 1000, 200}},
	}
}

func assertVec(t *testing.T, want, got mgl64.Vec3, delta float64, msgAndArgs ...any) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], delta, msgAndArgs...)
	}
}

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w, err := New(testBoxes())
	require.NoError(t, err)
	return w
}

func TestNewRejectsInvalidBox(t *testing.T) {
	_, err := New([]Box{{Name: "flat", Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{10, 10, 0}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flat")
}

func TestBoxIntersect(t *testing.T) {
	b := Box{Min: mgl64.Vec3{10, -5, -5}, Max: mgl64.Vec3{20, 5, 5}}

	h := b.intersect(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{40, 0, 0})
	require.True(t, h.hit)
	assert.InDelta(t, 0.25, h.fraction, 1e-12)
	assert.Equal(t, mgl64.Vec3{-1, 0, 0}, h.normal)

	h = b.intersect(mgl64.Vec3{30, 0, 0}, mgl64.Vec3{-40, 0, 0})
	require.True(t, h.hit)
	assert.InDelta(t, 0.25, h.fraction, 1e-12)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, h.normal)

	// 太短
	assert.False(t, b.intersect(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{5, 0, 0}).hit)
	// 平行且在外
	assert.False(t, b.intersect(mgl64.Vec3{0, 10, 0}, mgl64.Vec3{40, 0, 0}).hit)
	// 贴面平行
	assert.False(t, b.intersect(mgl64.Vec3{0, 5, 0}, mgl64.Vec3{40, 0, 0}).hit)
	// 背向
	assert.False(t, b.intersect(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{-40, 0, 0}).hit)

	h = b.intersect(mgl64.Vec3{15, 0, 0}, mgl64.Vec3{1, 0, 0})
	assert.True(t, h.hit)
	assert.True(t, h.startSolid)
}

func TestSweepMoveFree(t *testing.T) {
	w := newTestWorld(t)
	pos, moved := w.SweepMove(mgl64.Vec3{0, 0, 50}, mgl64.Vec3{200, 0, 0}, 16, 0.1)
	assert.Equal(t, 1.0, moved)
	assertVec(t, mgl64.Vec3{20, 0, 50}, pos, 1e-9, "%v", pos)
}

func TestSweepMoveStopsAtWall(t *testing.T) {
	w := newTestWorld(t)
	pos, moved := w.SweepMove(mgl64.Vec3{80, 0, 50}, mgl64.Vec3{200, 0, 0}, 16, 0.1)
	assert.Greater(t, moved, 0.0)
	assert.Less(t, moved, 1.0)
	assert.InDelta(t, 92-skin, pos.X(), 1e-9)

	// 已贴墙继续推：不再移动
	next, moved := w.SweepMove(pos, mgl64.Vec3{200, 0, 0}, 16, 0.1)
	assert.InDelta(t, 0, moved, 1e-9)
	assert.InDelta(t, pos.X(), next.X(), 1e-9)
}

func TestSweepMoveSlidesAlongWall(t *testing.T) {
	w := newTestWorld(t)
	pos, moved := w.SweepMove(mgl64.Vec3{80, 0, 50}, mgl64.Vec3{200, 200, 0}, 16, 0.1)
	assert.Greater(t, moved, 1.0)
	assert.Less(t, pos.X(), 92.0)
	assert.InDelta(t, 20, pos.Y(), 1e-9)
	assert.InDelta(t, 50, pos.Z(), 1e-12)
}

func TestSweepMoveZeroVelocityAndStartSolid(t *testing.T) {
	w := newTestWorld(t)

	start := mgl64.Vec3{0, 0, 50}
	pos, moved := w.SweepMove(start, mgl64.Vec3{}, 16, 0.1)
	assert.Equal(t, 0.0, moved)
	assert.Equal(t, start, pos)

	inside := mgl64.Vec3{116, 0, 50}
	pos, moved = w.SweepMove(inside, mgl64.Vec3{0, 100, 0}, 16, 0.1)
	assert.Equal(t, 0.0, moved)
	assert.Equal(t, inside, pos)
}

func TestCastRay(t *testing.T) {
	w := newTestWorld(t)

	tr := w.CastRay(mgl64.Vec3{0, 0, 50}, mgl64.Vec3{5, 0, 0}, 1000)
	require.True(t, tr.Hit)
	assert.Equal(t, "wall", tr.Entity)
	assert.InDelta(t, 0.1, tr.Fraction, 1e-12)
	assertVec(t, mgl64.Vec3{100, 0, 50}, tr.EndPosition, 1e-9)
	assert.Equal(t, mgl64.Vec3{-1, 0, 0}, tr.Normal)
	assert.Equal(t, mgl64.Vec3{116, 0, 100}, tr.Transform.Position)

	tr = w.CastRay(mgl64.Vec3{0, 0, 50}, mgl64.Vec3{0, 0, -1}, 1000)
	require.True(t, tr.Hit)
	assert.Equal(t, "floor", tr.Entity)
	assert.InDelta(t, 0.05, tr.Fraction, 1e-12)

	tr = w.CastRay(mgl64.Vec3{0, 0, 50}, mgl64.Vec3{-1, 0, 0}, 1000)
	assert.False(t, tr.Hit)
	assert.Equal(t, 1.0, tr.Fraction)
	assertVec(t, mgl64.Vec3{-1000, 0, 50}, tr.EndPosition, 1e-9)

	tr = w.CastRay(mgl64.Vec3{0, 0, 50}, mgl64.Vec3{}, 1000)
	assert.False(t, tr.Hit)
}

func TestCastRayHitsProp(t *testing.T) {
	w := newTestWorld(t)
	id := w.SpawnProp(pawn.PropSpec{Model: pawn.CitizenModel, Position: mgl64.Vec3{50, 0, 50}, Rotation: mgl64.QuatIdent()})

	tr := w.CastRay(mgl64.Vec3{0, 0, 50}, mgl64.Vec3{1, 0, 0}, 1000)
	require.True(t, tr.Hit)
	assert.Equal(t, "prop#1 (citizen)", tr.Entity)
	assert.InDelta(t, 0.034, tr.Fraction, 1e-12)
	assert.Equal(t, mgl64.Vec3{50, 0, 50}, tr.Transform.Position)
	assert.Equal(t, pawn.PropID(1), id)
}

func TestSweepMoveAgainstProps(t *testing.T) {
	w := newTestWorld(t)
	w.SpawnProp(pawn.PropSpec{Model: pawn.CitizenModel, Position: mgl64.Vec3{50, 0, 50}})

	// 正面撞上物体会被挡住
	pos, moved := w.SweepMove(mgl64.Vec3{20, 0, 50}, mgl64.Vec3{200, 0, 0}, 16, 0.1)
	assert.Less(t, moved, 1.0)
	assert.Less(t, pos.X(), 26.0)
	assert.InDelta(t, 26, pos.X(), 0.1)

	// 物体停在角色身上时，角色仍能朝任意方向走出
	start := mgl64.Vec3{50, 0, 50}
	for _, vel := range []mgl64.Vec3{{200, 0, 0}, {-200, 0, 0}, {0, 0, 200}} {
		pos, moved := w.SweepMove(start, vel, 16, 0.1)
		assert.Equal(t, 1.0, moved, "vel=%v", vel)
		assertVec(t, start.Add(vel.Mul(0.1)), pos, 1e-9)
	}
}

func TestDeleteAfterExpiresOnWorldClock(t *testing.T) {
	w := newTestWorld(t)
	id := w.SpawnProp(pawn.PropSpec{Model: pawn.CitizenModel, Position: mgl64.Vec3{0, 0, 500}})
	w.DeleteAfter(id, 10)
	w.DeleteAfter(pawn.PropID(99), 1)

	rep := w.Step(5)
	assert.Equal(t, 0, rep.Expired)
	assert.Equal(t, 1, w.PropCount())

	rep = w.Step(5)
	assert.Equal(t, 1, rep.Expired)
	assert.Equal(t, 0, w.PropCount())
	_, ok := w.Prop(id)
	assert.False(t, ok)
}

func TestDynamicPropFallsAndRests(t *testing.T) {
	w := newTestWorld(t)
	id := w.SpawnProp(pawn.PropSpec{
		Model:    pawn.CitizenModel,
		Position: mgl64.Vec3{0, 0, 100},
		Velocity: mgl64.Vec3{50, 0, 0},
		Motion:   pawn.MotionDynamic,
	})

	for i := 0; i < 300; i++ {
		w.Step(1.0 / 60)
	}
	p, ok := w.Prop(id)
	require.True(t, ok)
	assert.InDelta(t, PropHalfExtent, p.Position.Z(), 0.1)
	assert.Equal(t, 0.0, p.Velocity.Z())
	assert.Greater(t, p.Position.X(), 0.0)
	assert.Less(t, p.Velocity.X(), 50.0)

	states := w.Props()
	require.Len(t, states, 1)
	assert.Equal(t, uint64(id), states[0].ID)
	assert.Equal(t, pawn.CitizenModel, states[0].Model)
}

func TestModels(t *testing.T) {
	m := NewModels()
	a := m.Model(pawn.WatermelonURL)
	b := m.Model(pawn.WatermelonURL)
	assert.Equal(t, a, b)
	assert.Equal(t, "watermelon", a.Name)
	assert.Equal(t, "citizen", m.Model(pawn.CitizenModel).Name)
	assert.Equal(t, 2, m.Len())
}

func TestRecorderAndCamera(t *testing.T) {
	r := NewRecorder()
	r.ScreenText("hi", mgl64.Vec2{100, 100}, 5, colornames.Green, 0)
	r.Sphere(mgl64.Vec3{1, 2, 3}, 10, colornames.Blue, 0, true)

	cmds := r.Drain()
	require.Len(t, cmds, 2)
	assert.Equal(t, DrawText, cmds[0].Kind)
	assert.Equal(t, "#008000ff", cmds[0].Color)
	assert.Equal(t, 5, cmds[0].Line)
	assert.Equal(t, DrawSphere, cmds[1].Kind)
	assert.Equal(t, "#0000ffff", cmds[1].Color)
	assert.Empty(t, r.Drain())

	c := NewCamera()
	c.SetPosition(mgl64.Vec3{1, 2, 3})
	c.SetFieldOfView(70)
	c.SetFirstPersonViewer("alice")
	st := c.State()
	assert.Equal(t, [4]float64{0, 0, 0, 1}, st.Rotation)
	assert.Equal(t, 70.0, st.FOV)
	assert.Equal(t, "alice", st.Viewer)
}

// 角色接入参考宿主：撞墙停下，射线命中墙，调试叠加层有输出
func TestPawnInWorld(t *testing.T) {
	w := newTestWorld(t)
	rec := NewRecorder()
	p := pawn.New("alice", w.Host(rec))
	p.Spawn()
	p.Position = mgl64.Vec3{0, 0, 50}
	p.BuildInput(pawn.ClientInput{AnalogMove: mgl64.Vec3{1, 0, 0}})

	in := pawn.InputState{}.Advance(pawn.ButtonRun)
	for i := 0; i < 30; i++ {
		p.Simulate(pawn.Tick{Realm: pawn.RealmServer, Delta: 1.0 / 60, Input: in})
		in = in.Advance(pawn.ButtonRun)
	}
	assert.InDelta(t, 92-skin, p.Position.X(), 1e-6)

	cam := NewCamera()
	rep := p.FrameSimulate(pawn.Frame{Camera: cam})
	assert.True(t, rep.Trace.Hit)
	assert.Equal(t, "wall", rep.Trace.Entity)
	assert.Equal(t, pawn.StrikeIncorrect, rep.Verdict)
	assert.Equal(t, "alice", cam.FirstPersonViewer)
	assert.Len(t, rec.Drain(), 5)
}
