// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, group, task, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeGroupNotFound      = "GROUP_NOT_FOUND"
	ErrCodeTaskNotFound       = "TASK_NOT_FOUND"
	ErrCodeMembershipNotFound = "MEMBERSHIP_NOT_FOUND"
	ErrCodeMembershipExists   = "MEMBERSHIP_EXISTS"
	ErrCodeInvalidGroupName   = "INVALID_GROUP_NAME"
	ErrCodeInvalidTaskTitle   = "INVALID_TASK_TITLE"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
)

// NewGroupNotFoundError はグループ未検出エラーを生成する。
func NewGroupNotFoundError(groupID string) *APIError {
	return &APIError{
		Code:     ErrCodeGroupNotFound,
		Message:  fmt.Sprintf("指定されたグループが見つかりません: %s", groupID),
		Category: "group",
		Action:   "グループIDを確認してください。",
	}
}

// NewTaskNotFoundError はタスク未検出エラーを生成する。
func NewTaskNotFoundError(taskID string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotFound,
		Message:  fmt.Sprintf("指定されたタスクが見つかりません: %s", taskID),
		Category: "task",
		Action:   "タスクIDを確認してください。",
	}
}

// NewMembershipNotFoundError はメンバーシップ未検出エラーを生成する。
func NewMembershipNotFoundError(userID, groupID string) *APIError {
	return &APIError{
		Code:     ErrCodeMembershipNotFound,
		Message:  fmt.Sprintf("ユーザー %s はグループ %s に参加していません。", userID, groupID),
		Category: "group",
		Action:   "ユーザーIDとグループIDを確認してください。",
	}
}

// NewMembershipExistsError はメンバーシップ重複エラーを生成する。
// 同一の(ユーザー, グループ)組に対する2行目の挿入は許可しない。
func NewMembershipExistsError(userID, groupID string) *APIError {
	return &APIError{
		Code:     ErrCodeMembershipExists,
		Message:  fmt.Sprintf("ユーザー %s はすでにグループ %s に関係があります。", userID, groupID),
		Category: "group",
		Action:   "既存のメンバーシップを確認してください。",
	}
}

// NewInvalidGroupNameError はグループ名バリデーションエラーを生成する。
func NewInvalidGroupNameError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidGroupName,
		Message:  "グループ名は8文字以上100文字以下で指定してください。",
		Category: "validation",
		Action:   "グループ名の長さを確認してください。",
	}
}

// NewInvalidTaskTitleError はタスクタイトルバリデーションエラーを生成する。
func NewInvalidTaskTitleError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTaskTitle,
		Message:  "タスクタイトルは1文字以上200文字以下で指定してください。",
		Category: "validation",
		Action:   "タスクタイトルの長さを確認してください。",
	}
}

// NewForbiddenError は認可エラーを生成する。
// 所有者・作成者チェックに失敗した操作で返す。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "グループの所有者またはタスクの作成者のみ実行できます。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
