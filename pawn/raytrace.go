package pawn

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/colornames"
)

const (
	AimDistance     = 1000.0
	StrikeThreshold = 0.9

	hitSphereRadius    = 10.0
	strikeSphereRadius = 100.0
	strikeLength       = 100.0
)

var textAnchor = mgl64.Vec2{100, 100}

// StrikeVerdict 击打方向判定
type StrikeVerdict int

const (
	StrikeIncorrect StrikeVerdict = iota
	StrikeCorrect
)

func (v StrikeVerdict) String() string {
	if v == StrikeCorrect {
		return "correct"
	}
	return "incorrect"
}

// FrameReport 一帧射线演示的结果
type FrameReport struct {
	Trace   TraceResult
	Dot     float64
	Verdict StrikeVerdict
}

// ClassifyStrike 两个方向归一化后的点积大于阈值即为正确
func ClassifyStrike(strike, correct mgl64.Vec3) (StrikeVerdict, float64) {
	dot := Normal(strike).Dot(Normal(correct))
	if dot > StrikeThreshold {
		return StrikeCorrect, dot
	}
	return StrikeIncorrect, dot
}

// RayTrace 沿瞄准方向打一条定长射线，并演示击打方向判定
func (p *Pawn) RayTrace() FrameReport {
	var rep FrameReport

	if p.host.Tracer != nil {
		origin, dir := p.AimRay()
		rep.Trace = p.host.Tracer.CastRay(origin, dir, AimDistance)
	}

	ov := p.host.Overlay
	if rep.Trace.Hit && ov != nil {
		text := fmt.Sprintf("Entity: %s.\nTransform: %s", rep.Trace.Entity, rep.Trace.Transform)
		ov.ScreenText(text, textAnchor, 0, p.randomColor(), 0)
		ov.Sphere(rep.Trace.EndPosition, hitSphereRadius, p.randomColor(), 0, true)
	}

	// 固定的两个方向：击打方向为前，正确方向为右
	strike := axisForward.Mul(strikeLength)
	correct := axisRight.Mul(strikeLength)

	if ov != nil {
		ov.Sphere(strike, strikeSphereRadius, colornames.Green, 0, true)
		ov.Sphere(correct, strikeSphereRadius, colornames.Blue, 0, true)
	}

	rep.Verdict, rep.Dot = ClassifyStrike(strike, correct)

	if ov != nil {
		ov.ScreenText(fmt.Sprintf("%g", rep.Dot), textAnchor, 5, p.randomColor(), 0)
	}
	return rep
}

func (p *Pawn) randomColor() color.RGBA {
	return color.RGBA{
		R: uint8(p.rng.Intn(256)),
		G: uint8(p.rng.Intn(256)),
		B: uint8(p.rng.Intn(256)),
		A: 255,
	}
}
