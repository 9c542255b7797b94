package world

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
)

// DrawKind 调试绘制类型
type DrawKind string

const (
	DrawText   DrawKind = "text"
	DrawSphere DrawKind = "sphere"
)

// DrawCommand 一条调试绘制指令（JSON 下发给观看者）
type DrawCommand struct {
	Kind      DrawKind   `json:"kind"`
	Text      string     `json:"text,omitempty"`
	Screen    mgl64.Vec2 `json:"screen"`
	Line      int        `json:"line,omitempty"`
	Center    mgl64.Vec3 `json:"center"`
	Radius    float64    `json:"radius,omitempty"`
	Color     string     `json:"color"`
	Duration  float64    `json:"duration,omitempty"`
	DepthTest bool       `json:"depthTest,omitempty"`
}

// Recorder 收集一帧内的调试绘制，实现角色的叠加层接口
type Recorder struct {
	cmds []DrawCommand
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) ScreenText(text string, pos mgl64.Vec2, line int, c color.RGBA, duration float64) {
	r.cmds = append(r.cmds, DrawCommand{
		Kind:     DrawText,
		Text:     text,
		Screen:   pos,
		Line:     line,
		Color:    hexColor(c),
		Duration: duration,
	})
}

func (r *Recorder) Sphere(center mgl64.Vec3, radius float64, c color.RGBA, duration float64, depthTest bool) {
	r.cmds = append(r.cmds, DrawCommand{
		Kind:      DrawSphere,
		Center:    center,
		Radius:    radius,
		Color:     hexColor(c),
		Duration:  duration,
		DepthTest: depthTest,
	})
}

// Drain 取出并清空已记录的指令
func (r *Recorder) Drain() []DrawCommand {
	out := r.cmds
	r.cmds = nil
	return out
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
