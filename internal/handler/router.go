package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskbook/internal/middleware"
)

// HealthChecker はDB接続の死活確認インターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// MetricsRecorder はミドルウェアとハンドラーが利用するメトリクス記録の統合インターフェース。
type MetricsRecorder interface {
	middleware.HTTPMetrics
	GroupMetrics
	TaskMetrics
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	AuthUserHeader    string
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           MetricsRecorder
	MetricsHandler    http.Handler

	// サニタイズ
	Sanitizer TextSanitizer

	// サーバー時刻
	Clock ServerTimeProvider

	// グループとメンバーシップ
	GroupService GroupServiceInterface

	// タスクと割当
	TaskService TaskServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → LoggingMiddleware → CORSMiddleware → MetricsMiddleware
//	→ AuthMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// ヘルスチェック（/health）とメトリクス（/metrics）は認証チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin, deps.AuthUserHeader))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))

	timeHandler := NewTimeHandler(deps.Clock)
	groupHandler := NewGroupHandler(deps.GroupService, deps.Sanitizer, deps.Metrics)
	taskHandler := NewTaskHandler(deps.TaskService, deps.GroupService, deps.Sanitizer, deps.Metrics)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.AuthUserHeader))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		mutation := deps.RateLimiter.MutationMiddleware()

		// サーバー時刻プローブ
		r.Get("/api/time", timeHandler.GetServerTime)

		// グループ管理
		r.Route("/api/groups", func(r chi.Router) {
			r.Get("/", groupHandler.ListOwnedGroups)
			r.With(mutation).Post("/", groupHandler.CreateGroup)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", groupHandler.GetOwnedGroup)
				r.With(mutation).Put("/", groupHandler.UpdateGroup)
				r.With(mutation).Delete("/", groupHandler.DeleteGroup)

				// メンバーシップ管理
				r.Get("/membership", groupHandler.GetMembership)
				r.Get("/members", groupHandler.ListMembers)
				r.With(mutation).Post("/members", groupHandler.AddMember)
				r.With(mutation).Delete("/members/{userID}", groupHandler.RemoveMember)

				// グループ内タスク
				r.Get("/tasks", taskHandler.ListGroupTasks)
				r.With(mutation).Post("/tasks", taskHandler.CreateTask)
			})
		})

		// タスク管理
		r.Route("/api/tasks/{id}", func(r chi.Router) {
			r.Get("/", taskHandler.GetTask)
			r.With(mutation).Put("/", taskHandler.UpdateTask)
			r.With(mutation).Delete("/", taskHandler.DeleteTask)

			// 割当ライフサイクル
			r.With(mutation).Post("/assign", taskHandler.AssignTask)
			r.With(mutation).Post("/unassign", taskHandler.UnassignTask)
			r.With(mutation).Post("/complete", taskHandler.CompleteTask)
		})

		// ユーザースコープの一覧
		r.Route("/api/users/me", func(r chi.Router) {
			r.Get("/memberships", groupHandler.ListUserMemberships)
			r.Get("/tasks", taskHandler.ListUserTasks)
			r.Get("/assignments", taskHandler.ListUserAssignments)
			r.Get("/assignments/{taskID}", taskHandler.GetUserAssignment)
		})
	})

	return r
}
