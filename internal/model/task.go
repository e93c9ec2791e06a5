// Package model はドメインモデルを定義する。
package model

import "time"

// Task はグループに属する作業単位を表す。
// 作成者は作成時に必ず設定され、以後変更されない。
// AssignedToUserIDとDateTimeAssignedは常に同時に設定・解除される。
type Task struct {
	ID                string
	GroupID           string
	Title             string
	Description       string
	Deadline          time.Time
	CreatedByUserID   string
	AssignedToUserID  *string
	DateTimeAssigned  *time.Time
	DateTimeCompleted *time.Time

	Group          *Group
	CreatedByUser  *User
	AssignedToUser *User
}

// IsAssigned は担当者が設定されているかを返す。
func (t *Task) IsAssigned() bool {
	return t.AssignedToUserID != nil
}

// IsCompleted は完了済みかを返す。
func (t *Task) IsCompleted() bool {
	return t.DateTimeCompleted != nil
}

// IsActiveAssignment は担当者が設定され、かつ未完了であるかを返す。
// 担当一覧（アサインメント）に表示される条件。
func (t *Task) IsActiveAssignment() bool {
	return t.IsAssigned() && !t.IsCompleted()
}
