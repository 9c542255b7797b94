package server

import (
	"encoding/json"
	"net/http"
)

func roomFromQuery(w http.ResponseWriter, r *http.Request) (*Room, string, bool) {
	rm := GetRoomManager()
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		roomID = rm.DefaultRoomID()
	}
	room, err := rm.GetOrCreateRoom(roomID)
	if err != nil {
		http.Error(w, "room unavailable", http.StatusInternalServerError)
		return nil, roomID, false
	}
	return room, roomID, true
}

// HandleAdminConfig 提供房间配置的读取与更新（热更新基本规则）
// GET /admin/config?room=room-1  返回当前配置
// POST /admin/config?room=room-1 以 JSON 载荷更新部分字段
func HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	room, roomID, ok := roomFromQuery(w, r)
	if !ok {
		return
	}

	type cfg struct {
		MaxInputsPerTick *int     `json:"maxInputsPerTick,omitempty"`
		FieldOfView      *float64 `json:"fieldOfView,omitempty"`
		DebugOverlay     *bool    `json:"debugOverlay,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(room.Tunables())
		return
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		t := room.Tunables()
		if body.MaxInputsPerTick != nil {
			t.MaxInputsPerTick = *body.MaxInputsPerTick
		}
		if body.FieldOfView != nil {
			t.FieldOfView = *body.FieldOfView
		}
		if body.DebugOverlay != nil {
			t.DebugOverlay = *body.DebugOverlay
		}
		if err := room.SetTunables(t); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		Log.Infof("config updated: room=%s maxInputsPerTick=%d fov=%.1f debugOverlay=%v",
			roomID, t.MaxInputsPerTick, t.FieldOfView, t.DebugOverlay)
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// HandleMetrics 输出指定房间的运行指标
// GET /metrics?room=room-1
func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	room, roomID, ok := roomFromQuery(w, r)
	if !ok {
		return
	}
	payload := map[string]any{
		"room":    roomID,
		"tick":    room.TickSeq(),
		"metrics": room.Metrics().Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// HandleRooms 列出当前房间
// GET /admin/rooms
func HandleRooms(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"rooms": GetRoomManager().RoomIDs()})
}
