// Package group はグループとメンバーシップ管理のドメインロジックを提供する。
package group

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hitoshi/taskbook/internal/model"
	"github.com/hitoshi/taskbook/internal/repository"
)

// Service はグループ管理のサービス層。
// グループのCRUDと所有者・メンバーのメンバーシップ操作を提供する。
// ステートレスであり、複数ゴルーチンからの同時呼び出しに対して安全。
//
// リポジトリのエラーは操作名を含む形で既にラップされているため、
// この層では再ラップせずそのまま伝播させる。
type Service struct {
	groupRepo repository.GroupRepository
	ugRepo    repository.UserGroupRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(groupRepo repository.GroupRepository, ugRepo repository.UserGroupRepository) *Service {
	return &Service{
		groupRepo: groupRepo,
		ugRepo:    ugRepo,
	}
}

// ListOwnedGroups はユーザーが所有者である全メンバーシップを返す。
// 所有グループが無い場合は空のスライスを返す。
func (s *Service) ListOwnedGroups(ctx context.Context, userID string) ([]*model.UserGroup, error) {
	return s.ugRepo.ListOwnedByUser(ctx, userID)
}

// GetOwnedGroup は所有者メンバーシップを1件取得する。
// 見つからない場合はエラーではなくnilを返す。
func (s *Service) GetOwnedGroup(ctx context.Context, userID, groupID string) (*model.UserGroup, error) {
	return s.ugRepo.FindOwned(ctx, userID, groupID)
}

// CreateGroup は新しいグループと所有者メンバーシップを1つのトランザクションで作成し、
// 作成直後の所有者メンバーシップをリロードして返す。
// 名前の長さ制約の検証はAPI境界層の責務であり、ここでは再検証しない。
func (s *Service) CreateGroup(ctx context.Context, userID, name string, isActive bool) (*model.UserGroup, error) {
	group := &model.Group{
		ID:       uuid.New().String(),
		Name:     name,
		IsActive: isActive,
	}

	if err := s.groupRepo.CreateWithOwner(ctx, group, userID); err != nil {
		return nil, err
	}

	slog.Info("グループを作成しました",
		slog.String("group_id", group.ID),
		slog.String("owner_user_id", userID),
	)

	return s.GetOwnedGroup(ctx, userID, group.ID)
}

// UpdateGroup はグループの名前とアクティブフラグを更新し、
// 更新後の所有者メンバーシップをリロードして返す。
// グループが存在しない場合はGROUP_NOT_FOUNDエラーを返す。
func (s *Service) UpdateGroup(ctx context.Context, userID, groupID, name string, isActive bool) (*model.UserGroup, error) {
	updated, err := s.groupRepo.Update(ctx, groupID, name, isActive)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, model.NewGroupNotFoundError(groupID)
	}

	return s.GetOwnedGroup(ctx, userID, groupID)
}

// DeleteGroup はグループを削除する。所有者チェックは呼び出し側が
// IsGroupOwnerで事前に行うこと。グループが存在しない場合はGROUP_NOT_FOUNDエラーを返す。
// メンバーシップとタスクはストアのCASCADE設定により削除される。
func (s *Service) DeleteGroup(ctx context.Context, groupID string) error {
	deleted, err := s.groupRepo.Delete(ctx, groupID)
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewGroupNotFoundError(groupID)
	}

	slog.Info("グループを削除しました",
		slog.String("group_id", groupID),
	)

	return nil
}

// IsGroupOwner は所有者メンバーシップの存在を確認する。
// グループの更新・削除の認可ゲートとして使用する。
func (s *Service) IsGroupOwner(ctx context.Context, userID, groupID string) (bool, error) {
	return s.ugRepo.ExistsOwner(ctx, userID, groupID)
}

// ListGroupMemberships はグループのメンバー種別メンバーシップ一覧を返す。
func (s *Service) ListGroupMemberships(ctx context.Context, groupID string) ([]*model.UserGroup, error) {
	return s.ugRepo.ListMembersByGroup(ctx, groupID)
}

// GetMembership は種別を問わずメンバーシップを1件取得する。
// 見つからない場合はnilを返す。
func (s *Service) GetMembership(ctx context.Context, userID, groupID string) (*model.UserGroup, error) {
	return s.ugRepo.Find(ctx, userID, groupID)
}

// CreateMembership はメンバー種別のメンバーシップを作成し、リロードして返す。
// 同一の(ユーザー, グループ)組に既存の行（種別問わず）がある場合は
// MEMBERSHIP_EXISTSエラーを返す。
func (s *Service) CreateMembership(ctx context.Context, userID, groupID string) (*model.UserGroup, error) {
	exists, err := s.ugRepo.ExistsAny(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, model.NewMembershipExistsError(userID, groupID)
	}

	ug := &model.UserGroup{
		UserID:       userID,
		GroupID:      groupID,
		RelationType: model.RelationMember,
	}
	if err := s.ugRepo.Create(ctx, ug); err != nil {
		return nil, err
	}

	slog.Info("メンバーシップを作成しました",
		slog.String("user_id", userID),
		slog.String("group_id", groupID),
	)

	return s.GetMembership(ctx, userID, groupID)
}

// DeleteMembership はメンバーシップを削除する。対象が存在しない場合は何もせず成功する。
func (s *Service) DeleteMembership(ctx context.Context, userID, groupID string) error {
	return s.ugRepo.Delete(ctx, userID, groupID)
}

// ListUserMemberships はユーザーの全メンバーシップ（種別問わず）を返す。
func (s *Service) ListUserMemberships(ctx context.Context, userID string) ([]*model.UserGroup, error) {
	return s.ugRepo.ListByUser(ctx, userID)
}

// IsRelated は種別を問わずメンバーシップが存在するかを返す。
// グループへのアクセス可否の粗い判定に使用する。
func (s *Service) IsRelated(ctx context.Context, userID, groupID string) (bool, error) {
	return s.ugRepo.ExistsAny(ctx, userID, groupID)
}
