package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"pawnarena/pawn"
)

// ErrNotInput 非输入类消息（例如心跳），调用方忽略即可
var ErrNotInput = errors.New("not an input message")

// Input 客户端输入（意图），由服务端在 Tick 中解释并驱动世界状态
type Input struct {
	PlayerID PlayerID
	Seq      int64 // 客户端本地序列号，用于去重与确认
	Move     mgl64.Vec3
	Look     pawn.Angles
	Buttons  pawn.Buttons
}

// 入站输入的 JSON 结构（WebSocket 文本消息）
// 示例：{"type":"input","seq":3,"move":[1,0,0],"look":[0,2.5,0],"buttons":["run"]}
type InputMessage struct {
	Type    string     `json:"type"`
	Seq     int64      `json:"seq,omitempty"`
	Move    [3]float64 `json:"move"`
	Look    [3]float64 `json:"look"` // pitch, yaw, roll 增量
	Buttons []string   `json:"buttons,omitempty"`
}

// ParseInput 解析一条入站消息
func ParseInput(pid PlayerID, payload []byte) (Input, error) {
	var im InputMessage
	if err := json.Unmarshal(payload, &im); err != nil {
		return Input{}, fmt.Errorf("decode input: %w", err)
	}
	if strings.ToLower(im.Type) != "input" {
		return Input{}, ErrNotInput
	}
	return Input{
		PlayerID: pid,
		Seq:      im.Seq,
		Move:     mgl64.Vec3(im.Move),
		Look:     pawn.Angles{Pitch: im.Look[0], Yaw: im.Look[1], Roll: im.Look[2]},
		Buttons:  pawn.ParseButtons(im.Buttons),
	}, nil
}
