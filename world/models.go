package world

import (
	"path"
	"strings"
	"sync"

	"pawnarena/pawn"
)

// Models 模型注册表：按 URL 或资源路径缓存句柄，多个房间可共享
type Models struct {
	mu     sync.Mutex
	loaded map[string]pawn.Model
}

func NewModels() *Models {
	return &Models{loaded: make(map[string]pawn.Model)}
}

// Model 加载（或复用）模型；名字取路径最后一段去掉扩展名
func (m *Models) Model(url string) pawn.Model {
	m.mu.Lock()
	defer m.mu.Unlock()
	if md, ok := m.loaded[url]; ok {
		return md
	}
	name := path.Base(strings.TrimRight(url, "/"))
	name = strings.TrimSuffix(name, path.Ext(name))
	md := pawn.Model{Name: name, URL: url}
	m.loaded[url] = md
	return md
}

// Len 已加载模型数
func (m *Models) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loaded)
}
