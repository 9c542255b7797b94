package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	TickCount         int64 // 统计的 Tick 次数
	FrameCount        int64 // 观看侧帧数
	InputsAccepted    int64 // 被接受的输入数
	RateLimited       int64 // 因同帧限流被拒绝的输入数
	OldSeqIgnored     int64 // 因旧序列被忽略的输入数
	ChanFullDiscarded int64 // 因通道满被丢弃的输入数
	MovesCommitted    int64 // 扫掠移动后位置被提交的次数
	MovesBlocked      int64 // 有速度但未能移动的次数
	PropsSpawned      int64
	PropsExpired      int64
	RayHits           int64
	StrikesCorrect    int64
	StrikesIncorrect  int64
	TotalTickNs       int64 // Tick 累计耗时（纳秒）
}

func (m *RoomMetrics) IncAccepted()          { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *RoomMetrics) IncRateLimited()       { atomic.AddInt64(&m.RateLimited, 1) }
func (m *RoomMetrics) IncOldSeqIgnored()     { atomic.AddInt64(&m.OldSeqIgnored, 1) }
func (m *RoomMetrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *RoomMetrics) IncMoveCommitted()     { atomic.AddInt64(&m.MovesCommitted, 1) }
func (m *RoomMetrics) IncMoveBlocked()       { atomic.AddInt64(&m.MovesBlocked, 1) }
func (m *RoomMetrics) IncPropSpawned()       { atomic.AddInt64(&m.PropsSpawned, 1) }
func (m *RoomMetrics) AddPropsExpired(n int) { atomic.AddInt64(&m.PropsExpired, int64(n)) }
func (m *RoomMetrics) IncFrame()             { atomic.AddInt64(&m.FrameCount, 1) }
func (m *RoomMetrics) IncRayHit()            { atomic.AddInt64(&m.RayHits, 1) }

func (m *RoomMetrics) IncStrike(correct bool) {
	if correct {
		atomic.AddInt64(&m.StrikesCorrect, 1)
		return
	}
	atomic.AddInt64(&m.StrikesIncorrect, 1)
}

func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"frame_count":         atomic.LoadInt64(&m.FrameCount),
		"inputs_accepted":     atomic.LoadInt64(&m.InputsAccepted),
		"rate_limited":        atomic.LoadInt64(&m.RateLimited),
		"old_seq_ignored":     atomic.LoadInt64(&m.OldSeqIgnored),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"moves_committed":     atomic.LoadInt64(&m.MovesCommitted),
		"moves_blocked":       atomic.LoadInt64(&m.MovesBlocked),
		"props_spawned":       atomic.LoadInt64(&m.PropsSpawned),
		"props_expired":       atomic.LoadInt64(&m.PropsExpired),
		"ray_hits":            atomic.LoadInt64(&m.RayHits),
		"strikes_correct":     atomic.LoadInt64(&m.StrikesCorrect),
		"strikes_incorrect":   atomic.LoadInt64(&m.StrikesIncorrect),
		"avg_tick_ms":         avgMs,
	}
}
