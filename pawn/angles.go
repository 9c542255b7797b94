package pawn

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// 坐标系：X 前，Y 左，Z 上（与宿主引擎一致）
var (
	axisForward = mgl64.Vec3{1, 0, 0}
	axisRight   = mgl64.Vec3{0, -1, 0}
	axisUp      = mgl64.Vec3{0, 0, 1}
)

// Angles 视角（角度制）：Pitch 正值向下看，Yaw 正值向左转
type Angles struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// Add 分量相加（不做归一化）
func (a Angles) Add(d Angles) Angles {
	return Angles{Pitch: a.Pitch + d.Pitch, Yaw: a.Yaw + d.Yaw, Roll: a.Roll + d.Roll}
}

// Normal 将每个分量折回 [0, 360)
func (a Angles) Normal() Angles {
	return Angles{
		Pitch: NormalizeDegrees(a.Pitch),
		Yaw:   NormalizeDegrees(a.Yaw),
		Roll:  NormalizeDegrees(a.Roll),
	}
}

// ToRotation 由视角生成旋转四元数，纯函数。
// 依次绕 Z(yaw)、Y(pitch)、X(roll) 旋转；绕 +Y 的正角度使前向朝下。
func (a Angles) ToRotation() mgl64.Quat {
	return mgl64.AnglesToQuat(
		mgl64.DegToRad(a.Yaw),
		mgl64.DegToRad(a.Pitch),
		mgl64.DegToRad(a.Roll),
		mgl64.ZYX,
	)
}

// NormalizeDegrees 角度折回 [0, 360)
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// -0 与 360 的浮点边界
	if deg >= 360 || deg == 0 {
		return 0
	}
	return deg
}

// Forward 旋转后的前向单位向量
func Forward(rot mgl64.Quat) mgl64.Vec3 { return rot.Rotate(axisForward) }

// Right 旋转后的右向单位向量
func Right(rot mgl64.Quat) mgl64.Vec3 { return rot.Rotate(axisRight) }

// Up 旋转后的上向单位向量
func Up(rot mgl64.Quat) mgl64.Vec3 { return rot.Rotate(axisUp) }

// LookAt 返回朝向 dir 的旋转（不含滚转）；零向量返回单位旋转
func LookAt(dir mgl64.Vec3) mgl64.Quat {
	if Normal(dir) == (mgl64.Vec3{}) {
		return mgl64.QuatIdent()
	}
	yaw := mgl64.RadToDeg(math.Atan2(dir.Y(), dir.X()))
	pitch := mgl64.RadToDeg(-math.Atan2(dir.Z(), math.Hypot(dir.X(), dir.Y())))
	return Angles{Pitch: pitch, Yaw: yaw}.ToRotation()
}

// Normal 返回单位向量；零向量保持为零，避免 NaN 传入移动计算。
// 先按最大分量缩放，极小或极大的输入不会在求长度时下溢或溢出。
func Normal(v mgl64.Vec3) mgl64.Vec3 {
	m := math.Max(math.Abs(v.X()), math.Max(math.Abs(v.Y()), math.Abs(v.Z())))
	if m == 0 || math.IsNaN(m) {
		return mgl64.Vec3{}
	}
	if math.IsInf(m, 0) {
		// 无穷分量按方向取 ±1，其余分量归零
		var d mgl64.Vec3
		for i := range d {
			if math.IsInf(v[i], 0) {
				d[i] = math.Copysign(1, v[i])
			}
		}
		v, m = d, 1
	}
	v = mgl64.Vec3{v[0] / m, v[1] / m, v[2] / m}
	return v.Mul(1 / v.Len())
}
