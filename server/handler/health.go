package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"dogfight/server/state"
)

type HealthStatus struct {
	Status  string  `json:"status"`
	Players int     `json:"players"`
	Bullets int     `json:"bullets"`
	Uptime  float64 `json:"uptime"` // 秒
}

// NewHealthHandler はプロセスの生存、プレイヤー数、起動からの経過時間を返します。
// ワールドは読むだけで変更しません。
func NewHealthHandler(stats state.StatsReader, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := stats.Stats()
		status := HealthStatus{
			Status:  "online",
			Players: s.Players,
			Bullets: s.Bullets,
			Uptime:  time.Since(started).Seconds(),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			slog.WarnContext(r.Context(), "failed to write health status", "err", err)
		}
	}
}
