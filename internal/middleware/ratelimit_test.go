package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestRateLimiter(t *testing.T, config RateLimiterConfig) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(config)
	t.Cleanup(rl.Stop)
	return rl
}

func requestWithUser(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/groups", nil)
	return req.WithContext(ContextWithUserID(req.Context(), userID))
}

func TestRateLimiter_General_AllowsWithinBurst(t *testing.T) {
	config := DefaultRateLimiterConfig()
	config.GeneralBurst = 3
	rl := newTestRateLimiter(t, config)

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := rl.GeneralMiddleware()(okHandler)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestWithUser("user-1"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}
}

func TestRateLimiter_General_RejectsOverBurst(t *testing.T) {
	config := DefaultRateLimiterConfig()
	config.GeneralRate = rate.Limit(0.001) // ほぼ補充されない
	config.GeneralBurst = 2
	rl := newTestRateLimiter(t, config)

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := rl.GeneralMiddleware()(okHandler)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestWithUser("user-1"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithUser("user-1"))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header should be set on 429 response")
	}
}

// レート制限はユーザーごとに独立して適用されること。
func TestRateLimiter_General_PerUserIsolation(t *testing.T) {
	config := DefaultRateLimiterConfig()
	config.GeneralRate = rate.Limit(0.001)
	config.GeneralBurst = 1
	rl := newTestRateLimiter(t, config)

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := rl.GeneralMiddleware()(okHandler)

	// user-1 がバーストを使い切る
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithUser("user-1"))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithUser("user-1"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("user-1 second request: status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	// user-2 は影響を受けない
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithUser("user-2"))
	if w.Code != http.StatusOK {
		t.Errorf("user-2 request: status = %d, want %d", w.Code, http.StatusOK)
	}
}

// 書き込み系レート制限はAPI全般のレート制限と独立に動作すること。
func TestRateLimiter_MutationIndependentOfGeneral(t *testing.T) {
	config := DefaultRateLimiterConfig()
	config.GeneralRate = rate.Limit(0.001)
	config.GeneralBurst = 1
	config.MutationRate = rate.Limit(0.001)
	config.MutationBurst = 1
	rl := newTestRateLimiter(t, config)

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	general := rl.GeneralMiddleware()(okHandler)
	mutation := rl.MutationMiddleware()(okHandler)

	// API全般のバーストを使い切る
	w := httptest.NewRecorder()
	general.ServeHTTP(w, requestWithUser("user-1"))
	w = httptest.NewRecorder()
	general.ServeHTTP(w, requestWithUser("user-1"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("general second request: status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	// 書き込み系は独立したバケットなのでまだ通る
	w = httptest.NewRecorder()
	mutation.ServeHTTP(w, requestWithUser("user-1"))
	if w.Code != http.StatusOK {
		t.Errorf("mutation request: status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRateLimiter_MissingUserID_Returns401(t *testing.T) {
	rl := newTestRateLimiter(t, DefaultRateLimiterConfig())

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := rl.GeneralMiddleware()(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/groups", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// クリーンアップで期限切れエントリが削除されること。
func TestRateLimiter_CleanupRemovesStaleEntries(t *testing.T) {
	config := DefaultRateLimiterConfig()
	config.CleanupInterval = 10 * time.Millisecond
	rl := newTestRateLimiter(t, config)

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := rl.GeneralMiddleware()(okHandler)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithUser("user-1"))

	if count := rl.GeneralLimiterCount(); count != 1 {
		t.Fatalf("limiter count = %d, want 1", count)
	}

	// TTL（CleanupInterval * 2）経過後のクリーンアップを待つ
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if rl.GeneralLimiterCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Errorf("limiter count = %d, want 0 after cleanup", rl.GeneralLimiterCount())
}

func TestDefaultRateLimiterConfig(t *testing.T) {
	config := DefaultRateLimiterConfig()

	if config.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", config.GeneralBurst)
	}
	if config.MutationBurst != 30 {
		t.Errorf("MutationBurst = %d, want 30", config.MutationBurst)
	}
	if config.CleanupInterval != 5*time.Minute {
		t.Errorf("CleanupInterval = %v, want %v", config.CleanupInterval, 5*time.Minute)
	}
}
