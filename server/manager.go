package server

import (
	"fmt"
	"sort"
	"sync"

	"pawnarena/config"
)

// RoomManager 管理多个房间的生命周期
type RoomManager struct {
	mu    sync.RWMutex
	cfg   config.Config
	rooms map[string]*Room
}

var (
	defaultManager *RoomManager
	once           sync.Once
)

// InitRoomManager 以给定配置创建单例；须在 GetRoomManager 之前调用，之后调用无效
func InitRoomManager(cfg config.Config) *RoomManager {
	once.Do(func() {
		defaultManager = NewRoomManager(cfg)
	})
	return defaultManager
}

// GetRoomManager 单例房间管理器（未初始化时使用默认配置）
func GetRoomManager() *RoomManager {
	return InitRoomManager(config.Default())
}

// NewRoomManager 独立的管理器（测试用）
func NewRoomManager(cfg config.Config) *RoomManager {
	return &RoomManager{cfg: cfg, rooms: make(map[string]*Room)}
}

// GetOrCreateRoom 获取或创建房间，并确保开始 Tick
func (m *RoomManager) GetOrCreateRoom(id string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		var err error
		r, err = NewRoom(id, m.cfg)
		if err != nil {
			return nil, fmt.Errorf("create room %s: %w", id, err)
		}
		m.rooms[id] = r
		r.StartTicker()
		Log.Infof("room created: %s tps=%d", id, m.cfg.Room.TicksPerSecond)
	}
	return r, nil
}

// DefaultRoomID 未指定房间时使用的房间
func (m *RoomManager) DefaultRoomID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Room.Default
}

// RoomIDs 当前房间列表（有序）
func (m *RoomManager) RoomIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ApplyTunables 配置热更新：新房间与所有现存房间都使用新参数
func (m *RoomManager) ApplyTunables(t config.Tunables) error {
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Room.Tunables = t
	for _, r := range m.rooms {
		if err := r.SetTunables(t); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown 停止所有房间的 Tick
func (m *RoomManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rooms {
		r.StopTicker()
	}
}
