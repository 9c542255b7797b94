package world

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"pawnarena/pawn"
)

const (
	maxBumps = 8
	// skin 与表面保持的最小间距，避免下一次扫掠从实体内部开始
	skin = 1.0 / 32
	// stopEpsilon 速度低于该值时停止滑动迭代
	stopEpsilon = 1e-6
)

// World 参考宿主：静态盒子 + 临时物体，实现角色所需的移动、射线与生成能力。
// 仅在房间 Tick 协程内访问，不加锁。
type World struct {
	boxes   []Box
	props   map[pawn.PropID]*Prop
	nextID  pawn.PropID
	now     float64
	gravity float64

	models *Models
	log    *zap.Logger
}

// Option 构造选项
type Option func(*World)

// WithLogger 指定日志
func WithLogger(l *zap.Logger) Option {
	return func(w *World) {
		if l != nil {
			w.log = l
		}
	}
}

// WithGravity 覆盖重力加速度（单位/秒²）
func WithGravity(g float64) Option {
	return func(w *World) { w.gravity = g }
}

// WithModels 共享模型注册表
func WithModels(m *Models) Option {
	return func(w *World) {
		if m != nil {
			w.models = m
		}
	}
}

// DefaultGravity 默认重力
const DefaultGravity = 800.0

// New 以静态盒子构造世界；非法盒子返回错误
func New(boxes []Box, opts ...Option) (*World, error) {
	for i, b := range boxes {
		if !b.Valid() {
			return nil, fmt.Errorf("box %d (%q): min must be below max on every axis", i, b.Name)
		}
	}
	w := &World{
		boxes:   append([]Box(nil), boxes...),
		props:   make(map[pawn.PropID]*Prop),
		gravity: DefaultGravity,
		models:  NewModels(),
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Host 打包成角色所需的宿主能力（不含叠加层，叠加层按观看者区分）
func (w *World) Host(overlay pawn.Overlay) pawn.Host {
	return pawn.Host{
		Mover:   w,
		Tracer:  w,
		Spawner: w,
		Overlay: overlay,
		Models:  w.models,
	}
}

// Now 世界模拟时钟（秒）
func (w *World) Now() float64 { return w.now }

// Boxes 静态盒子副本
func (w *World) Boxes() []Box { return append([]Box(nil), w.boxes...) }

// traceHit 一次扫掠的最近命中
type traceHit struct {
	segmentHit
	box    Box
	prop   *Prop
	endPos mgl64.Vec3
}

// trace 半边长为 half 的盒体沿 delta 扫掠，返回最近命中；ignore 为不参与碰撞的物体
func (w *World) trace(origin, delta mgl64.Vec3, half float64, withProps bool, ignore pawn.PropID) traceHit {
	best := traceHit{segmentHit: segmentHit{fraction: 1}}
	consider := func(b Box, p *Prop) bool {
		h := b.Expand(half).intersect(origin, delta)
		if !h.hit {
			return false
		}
		if h.startSolid {
			// 物体不与角色碰撞，可能停在角色身上；起点已重叠的物体放行，让角色走出来
			if p != nil {
				return false
			}
			best = traceHit{segmentHit: h, box: b, prop: p}
			return true
		}
		if !best.hit || h.fraction < best.fraction {
			best = traceHit{segmentHit: h, box: b, prop: p}
		}
		return false
	}

	for _, b := range w.boxes {
		if consider(b, nil) {
			best.endPos = origin
			return best
		}
	}
	if withProps {
		for id, p := range w.props {
			if id == ignore {
				continue
			}
			if consider(p.Bounds(), p) {
				best.endPos = origin
				return best
			}
		}
	}
	best.endPos = origin.Add(delta.Mul(best.fraction))
	return best
}

// SweepMove 扫掠移动并沿碰撞面滑动，返回新位置与累计移动比例
func (w *World) SweepMove(pos, vel mgl64.Vec3, hull, dt float64) (mgl64.Vec3, float64) {
	pos, _, moved := w.slide(pos, vel, hull/2, dt, true, 0)
	return pos, moved
}

// slide 返回新位置、裁剪后的速度与累计移动比例
func (w *World) slide(pos, vel mgl64.Vec3, half, dt float64, withProps bool, ignore pawn.PropID) (mgl64.Vec3, mgl64.Vec3, float64) {
	if vel.Len() < stopEpsilon || dt <= 0 {
		return pos, vel, 0
	}
	travel := 0.0
	timeLeft := dt
	for bump := 0; bump < maxBumps && timeLeft > 0; bump++ {
		delta := vel.Mul(timeLeft)
		tr := w.trace(pos, delta, half, withProps, ignore)
		if tr.startSolid {
			// 卡在实体内部：不移动
			break
		}
		if !tr.hit {
			pos = pos.Add(delta)
			travel += 1
			break
		}

		// 退回 skin 距离
		frac := tr.fraction - skin/delta.Len()
		if frac < 0 {
			frac = 0
		}
		if frac > 0 {
			pos = pos.Add(delta.Mul(frac))
			travel += frac
		}

		vel = clipVelocity(vel, tr.normal)
		timeLeft -= timeLeft * frac
		if vel.Len() < stopEpsilon {
			break
		}
	}
	return pos, vel, travel
}

// clipVelocity 去掉速度在法线方向的分量（贴面滑动）
func clipVelocity(vel, normal mgl64.Vec3) mgl64.Vec3 {
	backoff := vel.Dot(normal)
	if backoff >= 0 {
		return vel
	}
	return vel.Sub(normal.Mul(backoff))
}

// CastRay 射线求交：静态盒子与存活物体中最近的一个
func (w *World) CastRay(origin, dir mgl64.Vec3, maxDist float64) pawn.TraceResult {
	delta := pawn.Normal(dir).Mul(maxDist)
	if delta.Len() == 0 {
		return pawn.TraceResult{EndPosition: origin, Fraction: 1}
	}
	tr := w.trace(origin, delta, 0, true, 0)
	res := pawn.TraceResult{
		Hit:         tr.hit,
		EndPosition: tr.endPos,
		Normal:      tr.normal,
		Fraction:    tr.fraction,
	}
	if !tr.hit {
		return res
	}
	if tr.prop != nil {
		res.Entity = tr.prop.Name()
		res.Transform = tr.prop.Transform()
	} else {
		res.Entity = tr.box.Name
		res.Transform = pawn.Transform{Position: tr.box.Center(), Rotation: mgl64.QuatIdent(), Scale: 1}
	}
	return res
}
