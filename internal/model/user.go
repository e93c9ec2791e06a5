// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 認証・登録は外部のIDプロバイダが担うため、ここでは参照用の属性のみ保持する。
type User struct {
	ID          string
	UserName    string
	Email       string
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	CreatedAt   time.Time
}
