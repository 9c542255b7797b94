package world

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"pawnarena/pawn"
)

const (
	// PropHalfExtent 临时物体碰撞盒半边长
	PropHalfExtent = 16.0
	// groundFriction 落地后水平速度每秒衰减比例
	groundFriction = 4.0
	groundNormalZ  = 0.7
)

// Prop 由角色生成的临时物理物体
type Prop struct {
	ID       pawn.PropID
	Model    pawn.Model
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Velocity mgl64.Vec3
	Motion   pawn.MotionType

	expires  bool
	deleteAt float64
}

// Name 射线命中时显示的实体名
func (p *Prop) Name() string {
	return fmt.Sprintf("prop#%d (%s)", p.ID, p.Model.Name)
}

// Bounds 当前碰撞盒
func (p *Prop) Bounds() Box {
	b := BoxAround(p.Position, PropHalfExtent)
	b.Name = p.Name()
	return b
}

// Transform 当前变换
func (p *Prop) Transform() pawn.Transform {
	return pawn.Transform{Position: p.Position, Rotation: p.Rotation, Scale: 1}
}

// PropState 广播用的物体快照
type PropState struct {
	ID       uint64     `json:"id"`
	Model    string     `json:"model"`
	Position mgl64.Vec3 `json:"pos"`
	Rotation [4]float64 `json:"rot"` // x,y,z,w
}

// SpawnProp 注册一个物体；宿主侧总是成功
func (w *World) SpawnProp(spec pawn.PropSpec) pawn.PropID {
	w.nextID++
	p := &Prop{
		ID:       w.nextID,
		Model:    w.models.Model(spec.Model),
		Position: spec.Position,
		Rotation: spec.Rotation,
		Velocity: spec.Velocity,
		Motion:   spec.Motion,
	}
	w.props[p.ID] = p
	w.log.Debug("prop spawned", zap.Uint64("prop", uint64(p.ID)), zap.String("model", spec.Model))
	return p.ID
}

// DeleteAfter 在世界时钟经过 seconds 后删除物体；未知物体忽略
func (w *World) DeleteAfter(id pawn.PropID, seconds float64) {
	p, ok := w.props[id]
	if !ok {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	p.expires = true
	p.deleteAt = w.now + seconds
}

// Prop 按 ID 查询
func (w *World) Prop(id pawn.PropID) (*Prop, bool) {
	p, ok := w.props[id]
	return p, ok
}

// PropCount 当前存活物体数
func (w *World) PropCount() int { return len(w.props) }

// StepReport 一次 Step 的结果
type StepReport struct {
	Expired int
}

// Step 推进世界时钟：动态物体受重力并与静态盒子碰撞，随后清理到期物体
func (w *World) Step(dt float64) StepReport {
	w.now += dt
	for _, p := range w.props {
		if p.Motion != pawn.MotionDynamic {
			continue
		}
		w.integrate(p, dt)
	}

	var rep StepReport
	for id, p := range w.props {
		if p.expires && p.deleteAt <= w.now {
			delete(w.props, id)
			rep.Expired++
			w.log.Debug("prop expired", zap.Uint64("prop", uint64(id)))
		}
	}
	return rep
}

func (w *World) integrate(p *Prop, dt float64) {
	p.Velocity[2] -= w.gravity * dt
	p.Position, p.Velocity, _ = w.slide(p.Position, p.Velocity, PropHalfExtent, dt, false, p.ID)

	// 被地面托住时：清掉竖直速度并施加摩擦
	if w.onGround(p) {
		if p.Velocity.Z() < 0 {
			p.Velocity[2] = 0
		}
		k := 1 - groundFriction*dt
		if k < 0 {
			k = 0
		}
		p.Velocity[0] *= k
		p.Velocity[1] *= k
	}
}

// onGround 向下探测 2*skin 是否碰到朝上的面
func (w *World) onGround(p *Prop) bool {
	tr := w.trace(p.Position, mgl64.Vec3{0, 0, -2 * skin}, PropHalfExtent, false, p.ID)
	return tr.hit && !tr.startSolid && tr.normal.Z() > groundNormalZ
}

// Props 按 ID 排序的物体快照
func (w *World) Props() []PropState {
	out := make([]PropState, 0, len(w.props))
	for _, p := range w.props {
		r := p.Rotation
		out = append(out, PropState{
			ID:       uint64(p.ID),
			Model:    p.Model.URL,
			Position: p.Position,
			Rotation: [4]float64{r.V.X(), r.V.Y(), r.V.Z(), r.W},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
