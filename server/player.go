package server

import (
	"github.com/go-gl/mathgl/mgl64"

	"pawnarena/pawn"
	"pawnarena/world"
)

// PlayerID 表示玩家唯一标识
type PlayerID string

// Sender 发往客户端的出站通道（ClientConn 实现；测试中可替换）
type Sender interface {
	Enqueue(b []byte)
	Close()
}

// PlayerState 为广播给客户端的轻量状态
type PlayerState struct {
	ID       string      `json:"id"`
	Position mgl64.Vec3  `json:"pos"`
	Velocity mgl64.Vec3  `json:"vel"`
	Angles   pawn.Angles `json:"angles"`
	Model    string      `json:"model"`
}

// Player 房间内的玩家：持有服务端权威的角色实体与观看侧的摄像机/调试层
type Player struct {
	ID   PlayerID
	Pawn *pawn.Pawn

	Camera  *world.Camera
	Overlay *world.Recorder
	FOV     float64 // 玩家自选视场角，0 表示使用房间默认

	input   pawn.InputState
	buttons pawn.Buttons // 最近一次输入携带的按键，在下一次 Tick 生效
	lastSeq int64
	inputs  int // 本 Tick 已接受的输入数

	Conn Sender // 网络连接的发送端（写协程）
}

func (p *Player) state() PlayerState {
	return PlayerState{
		ID:       string(p.ID),
		Position: p.Pawn.Position,
		Velocity: p.Pawn.Velocity,
		Angles:   p.Pawn.ViewAngles,
		Model:    p.Pawn.Model.URL,
	}
}

// prefs 用户偏好：玩家未设置时回落到房间默认
type prefs struct {
	player float64
	room   float64
}

func (p prefs) FieldOfView() float64 {
	if p.player > 0 {
		return p.player
	}
	return p.room
}
