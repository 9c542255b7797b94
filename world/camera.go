package world

import "github.com/go-gl/mathgl/mgl64"

// Camera 摄像机状态，实现角色的摄像机设置接口
type Camera struct {
	Position          mgl64.Vec3
	Rotation          mgl64.Quat
	FieldOfView       float64
	FirstPersonViewer string
}

func NewCamera() *Camera {
	return &Camera{Rotation: mgl64.QuatIdent()}
}

func (c *Camera) SetPosition(pos mgl64.Vec3)     { c.Position = pos }
func (c *Camera) SetRotation(rot mgl64.Quat)     { c.Rotation = rot }
func (c *Camera) SetFieldOfView(deg float64)     { c.FieldOfView = deg }
func (c *Camera) SetFirstPersonViewer(id string) { c.FirstPersonViewer = id }

// CameraState 广播给客户端的摄像机快照
type CameraState struct {
	Position mgl64.Vec3 `json:"pos"`
	Rotation [4]float64 `json:"rot"` // x,y,z,w
	FOV      float64    `json:"fov"`
	Viewer   string     `json:"viewer"`
}

// State 当前快照
func (c *Camera) State() CameraState {
	r := c.Rotation
	return CameraState{
		Position: c.Position,
		Rotation: [4]float64{r.V.X(), r.V.Y(), r.V.Z(), r.W},
		FOV:      c.FieldOfView,
		Viewer:   c.FirstPersonViewer,
	}
}
