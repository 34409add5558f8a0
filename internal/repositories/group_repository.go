package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/guard"
	"messenger-service/internal/models"
)

var ErrGroupNotFound = errors.New("group not found")

// GroupRepository abstracts group persistence. Every membership mutation
// re-checks the guard invariants against the current membership inside the
// same transaction, so a violation leaves state unchanged.
type GroupRepository interface {
	Create(ctx context.Context, creatorID int64, name, description string, memberIDs []int64) (models.Group, error)
	Get(ctx context.Context, groupID int64) (models.Group, error)
	ListForUser(ctx context.Context, userID int64) ([]models.Group, error)
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
	AddMembers(ctx context.Context, groupID, actorID int64, memberIDs []int64) error
	RemoveMember(ctx context.Context, groupID, actorID, memberID int64) error
	PromoteAdmin(ctx context.Context, groupID, actorID, memberID int64) error
	DemoteAdmin(ctx context.Context, groupID, actorID, memberID int64) error
	Leave(ctx context.Context, groupID, userID int64) error
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

const groupColumns = `id, name, description, creator_id, created_at`

// Create creates a group and its initial membership atomically. The creator
// is always inserted as an admin member.
func (r *GroupRepo) Create(ctx context.Context, creatorID int64, name, description string, memberIDs []int64) (models.Group, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Group{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var group models.Group
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO groups (name, description, creator_id) VALUES ($1, $2, $3) RETURNING `+groupColumns,
		name, description, creatorID,
	).StructScan(&group); err != nil {
		return models.Group{}, err
	}

	// dedupe members; the creator row carries the admin flag
	memberSet := map[int64]struct{}{}
	for _, id := range memberIDs {
		if id != creatorID {
			memberSet[id] = struct{}{}
		}
	}
	ids := make([]int64, 0, len(memberSet))
	for id := range memberSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, is_admin) VALUES ($1, $2, TRUE)`,
		group.ID, creatorID); err != nil {
		return models.Group{}, err
	}
	for _, id := range ids {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id, is_admin) VALUES ($1, $2, FALSE)`,
			group.ID, id); err != nil {
			return models.Group{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Group{}, err
	}
	return r.Get(ctx, group.ID)
}

// Get fetches a group together with its membership in join order.
func (r *GroupRepo) Get(ctx context.Context, groupID int64) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT `+groupColumns+` FROM groups WHERE id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	if err != nil {
		return models.Group{}, err
	}

	if err := r.db.SelectContext(ctx, &group.Members,
		`SELECT group_id, user_id, is_admin, joined_at FROM group_members WHERE group_id=$1 ORDER BY joined_at ASC, user_id ASC`,
		groupID); err != nil {
		return models.Group{}, err
	}
	return group, nil
}

// ListForUser returns groups that include the user.
func (r *GroupRepo) ListForUser(ctx context.Context, userID int64) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups,
		`SELECT g.id, g.name, g.description, g.creator_id, g.created_at FROM groups g
        INNER JOIN group_members gm ON gm.group_id = g.id WHERE gm.user_id=$1 ORDER BY g.created_at DESC`,
		userID)
	return groups, err
}

// IsMember checks membership.
func (r *GroupRepo) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id=$1 AND user_id=$2)`,
		groupID, userID)
	return exists, err
}

// AddMembers adds users to the group after the guard check passes.
func (r *GroupRepo) AddMembers(ctx context.Context, groupID, actorID int64, memberIDs []int64) error {
	return r.withGroupTx(ctx, groupID, func(tx *sqlx.Tx, g models.Group) error {
		if err := guard.CheckAddMembers(g, actorID, memberIDs); err != nil {
			return err
		}
		for _, id := range memberIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO group_members (group_id, user_id, is_admin) VALUES ($1, $2, FALSE)`,
				groupID, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveMember removes a member. The membership row carries the admin flag,
// so removing an admin member also removes them from the admin set.
func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, actorID, memberID int64) error {
	return r.withGroupTx(ctx, groupID, func(tx *sqlx.Tx, g models.Group) error {
		if err := guard.CheckRemoveMember(g, actorID, memberID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`DELETE FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, memberID)
		return err
	})
}

// PromoteAdmin grants admin to a member.
func (r *GroupRepo) PromoteAdmin(ctx context.Context, groupID, actorID, memberID int64) error {
	return r.withGroupTx(ctx, groupID, func(tx *sqlx.Tx, g models.Group) error {
		if err := guard.CheckPromote(g, actorID, memberID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE group_members SET is_admin=TRUE WHERE group_id=$1 AND user_id=$2`, groupID, memberID)
		return err
	})
}

// DemoteAdmin revokes admin from a member.
func (r *GroupRepo) DemoteAdmin(ctx context.Context, groupID, actorID, memberID int64) error {
	return r.withGroupTx(ctx, groupID, func(tx *sqlx.Tx, g models.Group) error {
		if err := guard.CheckDemote(g, actorID, memberID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE group_members SET is_admin=FALSE WHERE group_id=$1 AND user_id=$2`, groupID, memberID)
		return err
	})
}

// Leave removes the user's own membership. The creator cannot leave.
func (r *GroupRepo) Leave(ctx context.Context, groupID, userID int64) error {
	return r.withGroupTx(ctx, groupID, func(tx *sqlx.Tx, g models.Group) error {
		if err := guard.CheckLeave(g, userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`DELETE FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, userID)
		return err
	})
}

// withGroupTx loads the group and its membership under a row lock, runs the
// mutation, and commits. Guard violations roll back with state unchanged.
func (r *GroupRepo) withGroupTx(ctx context.Context, groupID int64, fn func(tx *sqlx.Tx, g models.Group) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var group models.Group
	err = tx.GetContext(ctx, &group, `SELECT `+groupColumns+` FROM groups WHERE id=$1 FOR UPDATE`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrGroupNotFound
		return err
	}
	if err != nil {
		return err
	}

	if err = tx.SelectContext(ctx, &group.Members,
		`SELECT group_id, user_id, is_admin, joined_at FROM group_members WHERE group_id=$1 ORDER BY joined_at ASC, user_id ASC`,
		groupID); err != nil {
		return err
	}

	if err = fn(tx, group); err != nil {
		return err
	}

	err = tx.Commit()
	return err
}
