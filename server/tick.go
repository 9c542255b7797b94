package server

import "time"

// StartTicker 启动房间的 Tick 循环（单线程推进世界）
func (r *Room) StartTicker() {
	if r.tickerStarted {
		return
	}
	r.tickerStarted = true
	interval := time.Second / time.Duration(r.ticksPerSecond)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
			}
			// 核心循环：处理输入 → 更新世界 → 广播结果
			start := time.Now()
			r.Step()
			r.metrics.AddTick(time.Since(start).Nanoseconds())
		}
	}()
}

// StopTicker 停止 Tick 循环（幂等）
func (r *Room) StopTicker() {
	r.stopOnce.Do(func() { close(r.stop) })
}
