package pawn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

const (
	// WatermelonURL 玩家自身使用的模型
	WatermelonURL = "https://asset.party/facepunch/watermelon"
	// CitizenModel 攻击键生成的布娃娃模型
	CitizenModel = "models/citizen/citizen.vmdl"

	WalkSpeed = 200.0
	RunSpeed  = 1000.0
	HullSize  = 16.0

	propForwardOffset = 40.0
	propLaunchSpeed   = 1000.0
	propLifetime      = 10.0
)

// Pawn 玩家控制的角色实体；宿主按生命周期调用 Spawn/BuildInput/Simulate/FrameSimulate
type Pawn struct {
	ID string

	Position mgl64.Vec3
	Rotation mgl64.Quat
	Velocity mgl64.Vec3

	// 由客户端输入复制的字段
	InputDirection mgl64.Vec3
	ViewAngles     Angles

	Model                     Model
	EnableDrawing             bool
	EnableHideInFirstPerson   bool
	EnableShadowInFirstPerson bool

	host Host
	rng  *rand.Rand
	log  *zap.Logger
}

// Option 构造选项
type Option func(*Pawn)

// WithLogger 指定日志（默认不输出）
func WithLogger(l *zap.Logger) Option {
	return func(p *Pawn) {
		if l != nil {
			p.log = l
		}
	}
}

// WithRand 指定随机源（测试中固定种子）
func WithRand(r *rand.Rand) Option {
	return func(p *Pawn) {
		if r != nil {
			p.rng = r
		}
	}
}

// New 创建角色，host 中的能力由宿主实现
func New(id string, host Host, opts ...Option) *Pawn {
	p := &Pawn{
		ID:       id,
		Rotation: mgl64.QuatIdent(),
		host:     host,
		rng:      rand.New(rand.NewSource(1)),
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Spawn 实体首次创建时调用一次
func (p *Pawn) Spawn() {
	if p.host.Models != nil {
		p.Model = p.host.Models.Model(WatermelonURL)
	} else {
		p.Model = Model{URL: WatermelonURL}
	}
	p.EnableDrawing = true
	p.EnableHideInFirstPerson = true
	p.EnableShadowInFirstPerson = true
	p.log.Debug("pawn spawned", zap.String("pawn", p.ID), zap.String("model", p.Model.URL))
}

// BuildInput 采集本 Tick 的输入：方向直接覆盖，视角累加后归一化
func (p *Pawn) BuildInput(in ClientInput) {
	p.InputDirection = in.AnalogMove
	p.ViewAngles = p.ViewAngles.Add(in.AnalogLook).Normal()
}

// Simulate 每个 Tick 调用（服务端与客户端都会执行）
func (p *Pawn) Simulate(t Tick) {
	p.Rotation = p.ViewAngles.ToRotation()

	// 输入方向归一化后转到朝向空间
	movement := Normal(p.InputDirection)
	p.Velocity = p.Rotation.Rotate(movement)
	p.Velocity = p.Velocity.Mul(SpeedFor(t.Input))

	// 碰撞与贴墙滑动交给宿主的扫掠移动
	if p.host.Mover != nil {
		pos, moved := p.host.Mover.SweepMove(p.Position, p.Velocity, HullSize, t.Delta)
		if moved > 0 {
			p.Position = pos
		}
	}

	if t.Realm == RealmServer && t.Input.Pressed(ButtonAttack1) {
		p.spawnRagdoll()
	}
}

// SpeedFor 按住奔跑键时使用高速
func SpeedFor(in InputState) float64 {
	if in.Down(ButtonRun) {
		return RunSpeed
	}
	return WalkSpeed
}

func (p *Pawn) spawnRagdoll() {
	if p.host.Spawner == nil {
		return
	}
	fwd := Forward(p.Rotation)
	id := p.host.Spawner.SpawnProp(PropSpec{
		Model:    CitizenModel,
		Position: p.Position.Add(fwd.Mul(propForwardOffset)),
		Rotation: LookAt(p.randomDirection()),
		Velocity: fwd.Mul(propLaunchSpeed),
		Motion:   MotionDynamic,
	})
	p.host.Spawner.DeleteAfter(id, propLifetime)
	p.log.Debug("ragdoll spawned", zap.String("pawn", p.ID), zap.Uint64("prop", uint64(id)))
}

// randomDirection 球面均匀分布的单位向量
func (p *Pawn) randomDirection() mgl64.Vec3 {
	for i := 0; i < 8; i++ {
		v := mgl64.Vec3{p.rng.NormFloat64(), p.rng.NormFloat64(), p.rng.NormFloat64()}
		if v.Len() > 1e-9 {
			return Normal(v)
		}
	}
	return axisForward
}

// FrameSimulate 每个渲染帧调用（仅观看侧）
func (p *Pawn) FrameSimulate(f Frame) FrameReport {
	// 每帧重新计算朝向，保证画面平滑
	p.Rotation = p.ViewAngles.ToRotation()

	if f.Camera != nil {
		f.Camera.SetPosition(p.Position)
		f.Camera.SetRotation(p.Rotation)
		fov := DefaultFieldOfView
		if f.Preferences != nil {
			fov = f.Preferences.FieldOfView()
		}
		f.Camera.SetFieldOfView(VerticalFieldOfView(fov))
		// 第一人称观察者是自己，不渲染自身模型
		f.Camera.SetFirstPersonViewer(p.ID)
	}

	return p.RayTrace()
}

// DefaultFieldOfView 无偏好时的水平视场角
const DefaultFieldOfView = 90.0

// VerticalFieldOfView 将 4:3 基准下的水平视场角换算为垂直视场角
func VerticalFieldOfView(horizontal float64) float64 {
	h := mgl64.DegToRad(horizontal)
	return mgl64.RadToDeg(2 * math.Atan(math.Tan(h/2)*(3.0/4.0)))
}

// AimRay 瞄准射线起点与方向
func (p *Pawn) AimRay() (mgl64.Vec3, mgl64.Vec3) {
	return p.Position, Forward(p.Rotation)
}

func (t Transform) String() string {
	r := t.Rotation
	return fmt.Sprintf("Position: %.2f,%.2f,%.2f Rotation: %.3f,%.3f,%.3f,%.3f Scale: %.2f",
		t.Position.X(), t.Position.Y(), t.Position.Z(), r.V.X(), r.V.Y(), r.V.Z(), r.W, t.Scale)
}
