package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Box 轴对齐包围盒（静态笔刷或物体的碰撞体）
type Box struct {
	Name string     `yaml:"name" json:"name"`
	Min  mgl64.Vec3 `yaml:"min" json:"min"`
	Max  mgl64.Vec3 `yaml:"max" json:"max"`
}

// BoxAround 以中心点和半边长构造盒子
func BoxAround(center mgl64.Vec3, half float64) Box {
	h := mgl64.Vec3{half, half, half}
	return Box{Min: center.Sub(h), Max: center.Add(h)}
}

// Expand 每个方向外扩 h（闵可夫斯基和，用于盒体扫掠）
func (b Box) Expand(h float64) Box {
	e := mgl64.Vec3{h, h, h}
	return Box{Name: b.Name, Min: b.Min.Sub(e), Max: b.Max.Add(e)}
}

// Center 盒子中心
func (b Box) Center() mgl64.Vec3 { return b.Min.Add(b.Max).Mul(0.5) }

// Valid 每个轴 Min < Max
func (b Box) Valid() bool {
	return b.Min.X() < b.Max.X() && b.Min.Y() < b.Max.Y() && b.Min.Z() < b.Max.Z()
}

// segmentHit 线段 origin→origin+delta 与盒子的相交结果
type segmentHit struct {
	hit        bool
	startSolid bool
	fraction   float64 // 进入点在线段上的比例 [0,1]
	normal     mgl64.Vec3
}

// intersect 平板法求线段与盒子的进入点；贴边视为在外
func (b Box) intersect(origin, delta mgl64.Vec3) segmentHit {
	tEnter := math.Inf(-1)
	tExit := math.Inf(1)
	var normal mgl64.Vec3

	for i := 0; i < 3; i++ {
		if delta[i] == 0 {
			if origin[i] <= b.Min[i] || origin[i] >= b.Max[i] {
				return segmentHit{}
			}
			continue
		}
		inv := 1 / delta[i]
		t1 := (b.Min[i] - origin[i]) * inv
		t2 := (b.Max[i] - origin[i]) * inv
		var n mgl64.Vec3
		if delta[i] > 0 {
			n[i] = -1
		} else {
			n[i] = 1
			t1, t2 = t2, t1
		}
		if t1 > tEnter {
			tEnter = t1
			normal = n
		}
		if t2 < tExit {
			tExit = t2
		}
		if tEnter >= tExit {
			return segmentHit{}
		}
	}

	if tExit <= 0 || tEnter > 1 {
		return segmentHit{}
	}
	if tEnter < 0 {
		return segmentHit{hit: true, startSolid: true}
	}
	return segmentHit{hit: true, fraction: tEnter, normal: normal}
}
