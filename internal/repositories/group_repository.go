package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"relay-service/internal/models"
)

// NewGroup is the input of CreateGroup. EncryptedKeys maps a member id to the
// group key wrapped under that member's public key.
type NewGroup struct {
	Name          string
	CreatorID     string
	MemberIDs     []string
	EncryptedKeys map[string]string
}

// CreateGroupResult reports the created group and the non-creator members that
// were actually added.
type CreateGroupResult struct {
	Group        models.Group
	AddedMembers []string
}

// GroupRepository abstracts group and membership persistence.
type GroupRepository interface {
	CreateGroup(ctx context.Context, in NewGroup) (CreateGroupResult, error)
	ListGroupsForUser(ctx context.Context, userID string) ([]models.GroupSummary, error)
	GetGroup(ctx context.Context, groupID, userID string) (models.GroupDetail, error)
	MembersExcept(ctx context.Context, groupID, userID string) ([]string, error)
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// CreateGroup creates a group and its members atomically.
//
// The creator is only added when they supplied their own key. Listed members
// without a key are skipped rather than failing the call.
func (r *GroupRepo) CreateGroup(ctx context.Context, in NewGroup) (res CreateGroupResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return CreateGroupResult{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var group models.Group
	if err = tx.QueryRowxContext(ctx, `INSERT INTO chat_groups (group_id, name, created_by) VALUES ($1, $2, $3)
        RETURNING group_id, name, created_by, avatar, created_at`, uuid.NewString(), in.Name, in.CreatorID).
		StructScan(&group); err != nil {
		return CreateGroupResult{}, err
	}

	if key, ok := in.EncryptedKeys[in.CreatorID]; ok {
		if err = insertMember(ctx, tx, group.ID, in.CreatorID, key); err != nil {
			return CreateGroupResult{}, err
		}
	}

	added := []string{}
	seen := map[string]struct{}{in.CreatorID: {}}
	for _, id := range in.MemberIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		key, ok := in.EncryptedKeys[id]
		if !ok {
			continue
		}
		seen[id] = struct{}{}
		if err = insertMember(ctx, tx, group.ID, id, key); err != nil {
			return CreateGroupResult{}, err
		}
		added = append(added, id)
	}

	if err = tx.Commit(); err != nil {
		return CreateGroupResult{}, err
	}
	return CreateGroupResult{Group: group, AddedMembers: added}, nil
}

func insertMember(ctx context.Context, tx *sqlx.Tx, groupID, userID, key string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id, encrypted_group_key) VALUES ($1, $2, $3)`, groupID, userID, key)
	return err
}

// ListGroupsForUser returns groups that include the user with their member counts.
func (r *GroupRepo) ListGroupsForUser(ctx context.Context, userID string) ([]models.GroupSummary, error) {
	groups := []models.GroupSummary{}
	err := r.db.SelectContext(ctx, &groups, `SELECT g.group_id, g.name, g.avatar,
            (SELECT COUNT(*) FROM group_members c WHERE c.group_id = g.group_id) AS member_count
        FROM chat_groups g
        INNER JOIN group_members gm ON gm.group_id = g.group_id
        WHERE gm.user_id=$1
        ORDER BY g.created_at DESC, g.group_id`, userID)
	return groups, err
}

// GetGroup returns the group with the caller's own wrapped key. Non-members get ErrGroupNotFound.
func (r *GroupRepo) GetGroup(ctx context.Context, groupID, userID string) (models.GroupDetail, error) {
	var detail models.GroupDetail
	err := r.db.GetContext(ctx, &detail, `SELECT g.group_id, g.name, g.created_by, g.avatar, g.created_at,
            gm.encrypted_group_key,
            (SELECT COUNT(*) FROM group_members c WHERE c.group_id = g.group_id) AS member_count
        FROM chat_groups g
        INNER JOIN group_members gm ON gm.group_id = g.group_id AND gm.user_id=$2
        WHERE g.group_id=$1`, groupID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GroupDetail{}, ErrGroupNotFound
	}
	return detail, err
}

// MembersExcept lists the group's members other than userID, for fan-out.
func (r *GroupRepo) MembersExcept(ctx context.Context, groupID, userID string) ([]string, error) {
	members := []string{}
	err := r.db.SelectContext(ctx, &members, `SELECT user_id FROM group_members WHERE group_id=$1 AND user_id<>$2 ORDER BY user_id`, groupID, userID)
	return members, err
}

// IsMember checks membership.
func (r *GroupRepo) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id=$1 AND user_id=$2)`, groupID, userID)
	return exists, err
}
