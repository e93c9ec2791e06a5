// Package model はドメインモデルを定義する。
package model

// Group はタスクをまとめるグループを表す。
type Group struct {
	ID       string
	Name     string
	IsActive bool
}

// RelationType はユーザーとグループの関係種別を表す。
type RelationType int16

const (
	// RelationOwner はグループの所有者であることを示す。
	RelationOwner RelationType = 1
	// RelationMember はグループのメンバーであることを示す。
	RelationMember RelationType = 2
)

// String はRelationTypeの文字列表現を返す。
func (r RelationType) String() string {
	switch r {
	case RelationOwner:
		return "owner"
	case RelationMember:
		return "member"
	default:
		return "unknown"
	}
}

// UserGroup はユーザーとグループの関係（所有・参加）を表すエッジ。
// GroupとUserは取得時のJOINでまとめてハイドレートされる。
// ハイドレートされない操作ではnilのままになる。
type UserGroup struct {
	UserID       string
	GroupID      string
	RelationType RelationType

	Group *Group
	User  *User
}
