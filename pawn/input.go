package pawn

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Buttons 按键位掩码
type Buttons uint32

const (
	ButtonRun Buttons = 1 << iota
	ButtonAttack1
)

var buttonNames = map[string]Buttons{
	"run":     ButtonRun,
	"attack1": ButtonAttack1,
}

// ParseButton 按动作名解析按键（大小写不敏感）
func ParseButton(name string) (Buttons, error) {
	b, ok := buttonNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown button %q", name)
	}
	return b, nil
}

// ParseButtons 解析按键列表，未知名称直接忽略
func ParseButtons(names []string) Buttons {
	var out Buttons
	for _, n := range names {
		if b, err := ParseButton(n); err == nil {
			out |= b
		}
	}
	return out
}

// Has 是否包含全部指定按键
func (b Buttons) Has(mask Buttons) bool { return mask != 0 && b&mask == mask }

// InputState 按键的本 Tick 与上一 Tick 状态，用于判定按下沿
type InputState struct {
	Current  Buttons
	Previous Buttons
}

// Down 本 Tick 是否按住
func (s InputState) Down(b Buttons) bool { return s.Current.Has(b) }

// Pressed 本 Tick 刚按下（上一 Tick 未按住）
func (s InputState) Pressed(b Buttons) bool { return s.Current.Has(b) && !s.Previous.Has(b) }

// Advance 推进到下一 Tick 的按键状态
func (s InputState) Advance(next Buttons) InputState {
	return InputState{Current: next, Previous: s.Current}
}

// ClientInput 客户端每 Tick 提供的模拟量输入
type ClientInput struct {
	AnalogMove mgl64.Vec3 // 移动方向（本地坐标，未归一化）
	AnalogLook Angles     // 累计的视角增量
}
