package server

import (
	"encoding/json"
	"hash/fnv"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"pawnarena/config"
	"pawnarena/pawn"
	"pawnarena/world"
)

// Room 房间世界：权威状态维护在内存，单线程 Tick 推进
type Room struct {
	ID string

	Players   map[PlayerID]*Player
	world     *world.World
	spawn     mgl64.Vec3
	joinChan  chan joinRequest
	inputChan chan Input
	leaveChan chan leaveRequest

	// 配置：Tick 频率与每多少个 Tick 跑一次观看侧帧
	ticksPerSecond int
	frameEvery     int

	mu       sync.RWMutex
	tunables config.Tunables

	tickSeq int64
	metrics *RoomMetrics

	tickerStarted bool
	stop          chan struct{}
	stopOnce      sync.Once
}

type joinRequest struct {
	id   PlayerID
	conn Sender
	fov  float64
}

type leaveRequest struct {
	id   PlayerID
	conn Sender // 非空时只移除仍使用该连接的玩家
}

// NewRoom 创建房间，按配置构建参考世界
func NewRoom(id string, cfg config.Config) (*Room, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w, err := world.New(cfg.World.Boxes,
		world.WithGravity(cfg.World.Gravity),
		world.WithLogger(named("world").With(zap.String("room", id))),
	)
	if err != nil {
		return nil, err
	}
	// 校验保证整除
	frameEvery := cfg.Room.TicksPerSecond / cfg.Room.FramesPerSecond
	return &Room{
		ID:             id,
		Players:        make(map[PlayerID]*Player),
		world:          w,
		spawn:          cfg.World.Spawn,
		joinChan:       make(chan joinRequest, 64),
		inputChan:      make(chan Input, 256), // 足够缓冲，避免网络读阻塞影响 Tick
		leaveChan:      make(chan leaveRequest, 64),
		ticksPerSecond: cfg.Room.TicksPerSecond,
		frameEvery:     frameEvery,
		tunables:       cfg.Room.Tunables,
		metrics:        &RoomMetrics{},
		stop:           make(chan struct{}),
	}, nil
}

// Tunables 当前可调参数
func (r *Room) Tunables() config.Tunables {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tunables
}

// SetTunables 更新可调参数（管理接口与配置热更新）
func (r *Room) SetTunables(t config.Tunables) error {
	if err := t.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.tunables = t
	r.mu.Unlock()
	return nil
}

// Metrics 房间运行指标
func (r *Room) Metrics() *RoomMetrics { return r.metrics }

// TickSeq 已推进的 Tick 数
func (r *Room) TickSeq() int64 { return atomic.LoadInt64(&r.tickSeq) }

// JoinPlayer 请求在 Tick 线程中加入玩家；同名玩家会顶替旧连接。
// 房间已停止时返回 false。
func (r *Room) JoinPlayer(id PlayerID, conn Sender, fov float64) bool {
	select {
	case <-r.stop:
		return false
	default:
	}
	select {
	case r.joinChan <- joinRequest{id: id, conn: conn, fov: fov}:
		return true
	case <-r.stop:
		return false
	}
}

// RequestLeave 请求在 Tick 线程中移除玩家，避免并发改动房间状态。
// conn 为发起方的连接；玩家已被同名新连接顶替时请求作废。
func (r *Room) RequestLeave(pid PlayerID, conn Sender) {
	// 阻塞写入保证移除生效；房间停止后无人消费，直接放弃
	select {
	case r.leaveChan <- leaveRequest{id: pid, conn: conn}:
	case <-r.stop:
	}
}

// OnInput 入站输入（不立即改变状态），仅记录意图，等下一次 Tick 处理
func (r *Room) OnInput(in Input) {
	// 不阻塞：输入拥塞时丢弃，保证 Tick 准时
	select {
	case r.inputChan <- in:
	default:
		r.metrics.IncChanFullDiscarded()
	}
}

func (r *Room) addPlayer(req joinRequest) {
	if old, ok := r.Players[req.id]; ok && old.Conn != nil {
		old.Conn.Close()
	}
	rec := world.NewRecorder()
	pw := pawn.New(string(req.id), r.world.Host(rec),
		pawn.WithLogger(named("pawn").With(zap.String("room", r.ID))),
		pawn.WithRand(rand.New(rand.NewSource(seedFor(r.ID, req.id)))),
	)
	pw.Spawn()
	pw.Position = r.spawn
	r.Players[req.id] = &Player{
		ID:      req.id,
		Pawn:    pw,
		Camera:  world.NewCamera(),
		Overlay: rec,
		FOV:     req.fov,
		Conn:    req.conn,
	}
	Log.Infof("player joined: room=%s player=%s", r.ID, req.id)
}

// LeavePlayer 将玩家移出房间
func (r *Room) LeavePlayer(id PlayerID) {
	if p, ok := r.Players[id]; ok {
		if p.Conn != nil {
			p.Conn.Close()
		}
		delete(r.Players, id)
		Log.Infof("player left: room=%s player=%s", r.ID, id)
	}
}

// BeginTick 开始新的 Tick：重置帧内计数
func (r *Room) BeginTick() {
	atomic.AddInt64(&r.tickSeq, 1)
	for _, p := range r.Players {
		p.inputs = 0
	}
}

// ProcessInputs 处理当前帧的加入/离开与所有输入意图（非阻塞 drain）
func (r *Room) ProcessInputs() {
	maxInputs := r.Tunables().MaxInputsPerTick
	// 先处理加入，保证同一 Tick 内到达的首个输入能找到玩家
	for drained := false; !drained; {
		select {
		case req := <-r.joinChan:
			r.addPlayer(req)
		default:
			drained = true
		}
	}
	for {
		select {
		case req := <-r.leaveChan:
			if p, ok := r.Players[req.id]; ok && (req.conn == nil || p.Conn == req.conn) {
				r.LeavePlayer(req.id)
			}
		case in := <-r.inputChan:
			p, ok := r.Players[in.PlayerID]
			if !ok {
				continue
			}
			if in.Seq != 0 && in.Seq <= p.lastSeq {
				r.metrics.IncOldSeqIgnored()
				continue
			}
			if p.inputs >= maxInputs {
				r.metrics.IncRateLimited()
				continue
			}
			p.inputs++
			if in.Seq != 0 {
				p.lastSeq = in.Seq
			}
			p.Pawn.BuildInput(pawn.ClientInput{AnalogMove: in.Move, AnalogLook: in.Look})
			p.buttons = in.Buttons
			r.metrics.IncAccepted()
		default:
			return
		}
	}
}

// UpdateWorld 每个角色跑一次 Simulate，再推进世界（物体下落与到期清理）
func (r *Room) UpdateWorld() {
	dt := 1 / float64(r.ticksPerSecond)
	for _, p := range r.sortedPlayers() {
		p.input = p.input.Advance(p.buttons)
		before := p.Pawn.Position
		p.Pawn.Simulate(pawn.Tick{Realm: pawn.RealmServer, Delta: dt, Input: p.input})

		if p.Pawn.Velocity.Len() > 0 {
			if p.Pawn.Position != before {
				r.metrics.IncMoveCommitted()
			} else {
				r.metrics.IncMoveBlocked()
			}
		}
		if p.input.Pressed(pawn.ButtonAttack1) {
			r.metrics.IncPropSpawned()
		}
	}
	rep := r.world.Step(dt)
	if rep.Expired > 0 {
		r.metrics.AddPropsExpired(rep.Expired)
	}
}

// frameDue 本 Tick 是否需要跑观看侧帧
func (r *Room) frameDue() bool {
	return atomic.LoadInt64(&r.tickSeq)%int64(r.frameEvery) == 0
}

// FrameView 单个观看者一帧的画面参数与调试结果
type FrameView struct {
	Camera  world.CameraState   `json:"camera"`
	Hit     bool                `json:"hit"`
	Entity  string              `json:"entity,omitempty"`
	End     mgl64.Vec3          `json:"end"`
	Dot     float64             `json:"dot"`
	Verdict string              `json:"verdict"`
	Debug   []world.DrawCommand `json:"debug,omitempty"`
}

// SimulateFrames 为每个观看者跑一次 FrameSimulate
func (r *Room) SimulateFrames() map[PlayerID]FrameView {
	t := r.Tunables()
	views := make(map[PlayerID]FrameView, len(r.Players))
	for _, p := range r.sortedPlayers() {
		rep := p.Pawn.FrameSimulate(pawn.Frame{
			Camera:      p.Camera,
			Preferences: prefs{player: p.FOV, room: t.FieldOfView},
		})
		r.metrics.IncFrame()
		if rep.Trace.Hit {
			r.metrics.IncRayHit()
		}
		r.metrics.IncStrike(rep.Verdict == pawn.StrikeCorrect)

		debug := p.Overlay.Drain()
		if !t.DebugOverlay {
			debug = nil
		}
		views[p.ID] = FrameView{
			Camera:  p.Camera.State(),
			Hit:     rep.Trace.Hit,
			Entity:  rep.Trace.Entity,
			End:     rep.Trace.EndPosition,
			Dot:     rep.Dot,
			Verdict: rep.Verdict.String(),
			Debug:   debug,
		}
	}
	return views
}

// StateMessage 下发给客户端的状态帧
type StateMessage struct {
	Type    string            `json:"type"`
	Tick    int64             `json:"tick"`
	Time    float64           `json:"time"`
	Players []PlayerState     `json:"players"`
	Props   []world.PropState `json:"props"`
	View    *FrameView        `json:"view,omitempty"`
}

// Broadcast 将当前世界状态广播给所有玩家（文本 JSON）；每个玩家附带自己的画面
func (r *Room) Broadcast(views map[PlayerID]FrameView) {
	players := r.sortedPlayers()
	snapshot := make([]PlayerState, 0, len(players))
	for _, p := range players {
		snapshot = append(snapshot, p.state())
	}
	props := r.world.Props()

	for _, p := range players {
		if p.Conn == nil {
			continue
		}
		msg := StateMessage{
			Type:    "state",
			Tick:    atomic.LoadInt64(&r.tickSeq),
			Time:    r.world.Now(),
			Players: snapshot,
			Props:   props,
		}
		if v, ok := views[p.ID]; ok {
			msg.View = &v
		}
		b, err := json.Marshal(msg)
		if err != nil {
			Log.Errorf("marshal state: room=%s player=%s err=%v", r.ID, p.ID, err)
			continue
		}
		p.Conn.Enqueue(b)
	}
}

// Step 推进一个 Tick：处理输入 → 更新世界 → （到点时）观看侧帧 → 广播
func (r *Room) Step() {
	r.BeginTick()
	r.ProcessInputs()
	r.UpdateWorld()
	if r.frameDue() {
		r.Broadcast(r.SimulateFrames())
	}
}

func (r *Room) sortedPlayers() []*Player {
	out := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// seedFor 每个玩家固定的随机种子，便于复现
func seedFor(room string, id PlayerID) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(room))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(id))
	return int64(h.Sum64())
}
