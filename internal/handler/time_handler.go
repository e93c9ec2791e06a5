package handler

import (
	"context"
	"net/http"
	"time"
)

// ServerTimeProvider はストアの現在時刻の取得インターフェース。
// repository.Clockの部分集合として定義する。
type ServerTimeProvider interface {
	ServerTime(ctx context.Context) (time.Time, error)
}

// TimeHandler はサーバー時刻プローブのHTTPハンドラー。
// 接続確認と時刻同期の用途でストアの現在時刻を返す。
type TimeHandler struct {
	clock ServerTimeProvider
}

// NewTimeHandler はTimeHandlerを生成する。
func NewTimeHandler(clock ServerTimeProvider) *TimeHandler {
	return &TimeHandler{clock: clock}
}

// serverTimeResponse はサーバー時刻のAPIレスポンス。
type serverTimeResponse struct {
	ServerTime time.Time `json:"server_time"`
}

// GetServerTime はストアの現在時刻を取得する。
// GET /api/time
func (h *TimeHandler) GetServerTime(w http.ResponseWriter, r *http.Request) {
	now, err := h.clock.ServerTime(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, serverTimeResponse{ServerTime: now})
}
