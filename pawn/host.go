package pawn

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
)

// Realm 当前代码运行在哪一侧
type Realm int

const (
	RealmServer Realm = iota
	RealmClient
)

func (r Realm) String() string {
	if r == RealmServer {
		return "server"
	}
	return "client"
}

// Mover 扫掠移动：考虑沿途碰撞并在表面滑动，返回新位置与移动量（>0 才算移动）
type Mover interface {
	SweepMove(pos, vel mgl64.Vec3, hull, dt float64) (mgl64.Vec3, float64)
}

// Transform 实体的位置与朝向
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    float64
}

// TraceResult 射线检测结果
type TraceResult struct {
	Hit         bool
	Entity      string
	Transform   Transform
	EndPosition mgl64.Vec3
	Normal      mgl64.Vec3
	Fraction    float64
}

// Tracer 射线求交
type Tracer interface {
	CastRay(origin, dir mgl64.Vec3, maxDist float64) TraceResult
}

// MotionType 物理体运动类型
type MotionType int

const (
	MotionStatic MotionType = iota
	MotionDynamic
)

// PropSpec 临时物理物体的生成参数
type PropSpec struct {
	Model    string
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Velocity mgl64.Vec3
	Motion   MotionType
}

// PropID 宿主分配的物体标识
type PropID uint64

// Spawner 生成临时物体并在延迟后删除（宿主保证成功）
type Spawner interface {
	SpawnProp(spec PropSpec) PropID
	DeleteAfter(id PropID, seconds float64)
}

// Overlay 调试叠加层绘制
type Overlay interface {
	ScreenText(text string, pos mgl64.Vec2, line int, c color.RGBA, duration float64)
	Sphere(center mgl64.Vec3, radius float64, c color.RGBA, duration float64, depthTest bool)
}

// Camera 摄像机参数设置
type Camera interface {
	SetPosition(pos mgl64.Vec3)
	SetRotation(rot mgl64.Quat)
	SetFieldOfView(deg float64)
	SetFirstPersonViewer(id string)
}

// Preferences 用户偏好
type Preferences interface {
	FieldOfView() float64
}

// Model 已加载的模型句柄
type Model struct {
	Name string
	URL  string
}

// ModelLoader 按 URL 加载模型
type ModelLoader interface {
	Model(url string) Model
}

// Host 宿主注入的全部能力
type Host struct {
	Mover   Mover
	Tracer  Tracer
	Spawner Spawner
	Overlay Overlay
	Models  ModelLoader
}

// Tick 一次固定步长模拟的上下文
type Tick struct {
	Realm Realm
	Delta float64 // 秒
	Input InputState
}

// Frame 一次渲染帧的上下文（仅观看侧）
type Frame struct {
	Camera      Camera
	Preferences Preferences
}
