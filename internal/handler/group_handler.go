package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskbook/internal/middleware"
	"github.com/hitoshi/taskbook/internal/model"
)

// グループ名の長さ制約。検証はこの境界層で行い、サービス層では再検証しない。
const (
	groupNameMinLength = 8
	groupNameMaxLength = 100
)

// GroupServiceInterface はグループハンドラーが必要とするサービスインターフェース。
type GroupServiceInterface interface {
	ListOwnedGroups(ctx context.Context, userID string) ([]*model.UserGroup, error)
	GetOwnedGroup(ctx context.Context, userID, groupID string) (*model.UserGroup, error)
	CreateGroup(ctx context.Context, userID, name string, isActive bool) (*model.UserGroup, error)
	UpdateGroup(ctx context.Context, userID, groupID, name string, isActive bool) (*model.UserGroup, error)
	DeleteGroup(ctx context.Context, groupID string) error
	IsGroupOwner(ctx context.Context, userID, groupID string) (bool, error)
	ListGroupMemberships(ctx context.Context, groupID string) ([]*model.UserGroup, error)
	GetMembership(ctx context.Context, userID, groupID string) (*model.UserGroup, error)
	CreateMembership(ctx context.Context, userID, groupID string) (*model.UserGroup, error)
	DeleteMembership(ctx context.Context, userID, groupID string) error
	ListUserMemberships(ctx context.Context, userID string) ([]*model.UserGroup, error)
	IsRelated(ctx context.Context, userID, groupID string) (bool, error)
}

// TextSanitizer はユーザー入力テキストのサニタイズインターフェース。
// security.TextSanitizerServiceの部分集合として定義する。
type TextSanitizer interface {
	Sanitize(input string) string
}

// GroupMetrics はグループ操作のメトリクス記録インターフェース。
type GroupMetrics interface {
	RecordGroupCreated()
}

// GroupHandler はグループとメンバーシップ管理のHTTPハンドラー。
type GroupHandler struct {
	service   GroupServiceInterface
	sanitizer TextSanitizer
	metrics   GroupMetrics
}

// NewGroupHandler はGroupHandlerを生成する。
func NewGroupHandler(service GroupServiceInterface, sanitizer TextSanitizer, metrics GroupMetrics) *GroupHandler {
	return &GroupHandler{
		service:   service,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// groupRequest はグループ作成・更新リクエストのボディ。
type groupRequest struct {
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// memberRequest はメンバー追加リクエストのボディ。
// UserIDが空の場合はリクエスト元ユーザー自身が参加する。
type memberRequest struct {
	UserID string `json:"user_id"`
}

// ListOwnedGroups はリクエスト元ユーザーの所有グループ一覧を取得する。
// GET /api/groups
func (h *GroupHandler) ListOwnedGroups(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	groups, err := h.service.ListOwnedGroups(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserGroupResponses(groups))
}

// CreateGroup は新しいグループを作成する。リクエスト元ユーザーが所有者になる。
// POST /api/groups
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	name := h.sanitizer.Sanitize(req.Name)
	if !isValidGroupName(name) {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidGroupNameError())
		return
	}

	ug, err := h.service.CreateGroup(r.Context(), userID, name, req.IsActive)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordGroupCreated()
	writeJSON(w, http.StatusCreated, toUserGroupResponse(ug))
}

// GetOwnedGroup は所有グループを1件取得する。
// GET /api/groups/{id}
func (h *GroupHandler) GetOwnedGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	groupID := chi.URLParam(r, "id")

	ug, err := h.service.GetOwnedGroup(r.Context(), userID, groupID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if ug == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewGroupNotFoundError(groupID))
		return
	}

	writeJSON(w, http.StatusOK, toUserGroupResponse(ug))
}

// UpdateGroup はグループの名前とアクティブフラグを更新する。
// 所有者のみ実行できる。
// PUT /api/groups/{id}
func (h *GroupHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	groupID := chi.URLParam(r, "id")

	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	name := h.sanitizer.Sanitize(req.Name)
	if !isValidGroupName(name) {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidGroupNameError())
		return
	}

	// 認可ゲート: 所有者のみ更新できる
	isOwner, err := h.service.IsGroupOwner(r.Context(), userID, groupID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !isOwner {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	ug, err := h.service.UpdateGroup(r.Context(), userID, groupID, name, req.IsActive)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserGroupResponse(ug))
}

// DeleteGroup はグループを削除する。所有者のみ実行できる。
// DELETE /api/groups/{id}
func (h *GroupHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	groupID := chi.URLParam(r, "id")

	// 認可ゲート: 所有者のみ削除できる
	isOwner, err := h.service.IsGroupOwner(r.Context(), userID, groupID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !isOwner {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	if err := h.service.DeleteGroup(r.Context(), groupID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMembers はグループのメンバー一覧を取得する。
// グループに関係するユーザーのみ取得できる。
// GET /api/groups/{id}/members
func (h *GroupHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	groupID := chi.URLParam(r, "id")

	related, err := h.service.IsRelated(r.Context(), userID, groupID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !related {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	members, err := h.service.ListGroupMemberships(r.Context(), groupID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserGroupResponses(members))
}

// AddMember はグループにメンバーを追加する。
// ボディのuser_idが空の場合はリクエスト元ユーザー自身が参加する。
// 他ユーザーの追加はグループ所有者のみ実行できる。
// POST /api/groups/{id}/members
func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	groupID := chi.URLParam(r, "id")

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	memberUserID := req.UserID
	if memberUserID == "" {
		memberUserID = userID
	}

	if memberUserID != userID {
		isOwner, err := h.service.IsGroupOwner(r.Context(), userID, groupID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		if !isOwner {
			writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
			return
		}
	}

	ug, err := h.service.CreateMembership(r.Context(), memberUserID, groupID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserGroupResponse(ug))
}

// RemoveMember はグループからメンバーを削除する。
// 自身の脱退、またはグループ所有者による除名のみ実行できる。
// 対象メンバーシップが存在しない場合も204を返す（冪等）。
// DELETE /api/groups/{id}/members/{userID}
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	groupID := chi.URLParam(r, "id")
	memberUserID := chi.URLParam(r, "userID")

	if memberUserID != userID {
		isOwner, err := h.service.IsGroupOwner(r.Context(), userID, groupID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		if !isOwner {
			writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
			return
		}
	}

	if err := h.service.DeleteMembership(r.Context(), memberUserID, groupID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetMembership はリクエスト元ユーザーのグループへのメンバーシップを取得する。
// GET /api/groups/{id}/membership
func (h *GroupHandler) GetMembership(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	groupID := chi.URLParam(r, "id")

	ug, err := h.service.GetMembership(r.Context(), userID, groupID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if ug == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewMembershipNotFoundError(userID, groupID))
		return
	}

	writeJSON(w, http.StatusOK, toUserGroupResponse(ug))
}

// ListUserMemberships はリクエスト元ユーザーの全メンバーシップを取得する。
// GET /api/users/me/memberships
func (h *GroupHandler) ListUserMemberships(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	memberships, err := h.service.ListUserMemberships(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserGroupResponses(memberships))
}

// isValidGroupName はグループ名の長さ制約を検証する。
func isValidGroupName(name string) bool {
	length := utf8.RuneCountInString(name)
	return length >= groupNameMinLength && length <= groupNameMaxLength
}
