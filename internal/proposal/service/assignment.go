package service

import (
	"errors"
	"sync/atomic"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/propoza/internal/account/domain"
	"github.com/smallbiznis/propoza/internal/actorcontext"
	"github.com/smallbiznis/propoza/internal/config"
	"github.com/smallbiznis/propoza/internal/proposal/domain"
	"gorm.io/gorm"
)

// AssigneePolicy decides which staff member receives a customer request on
// submission. Pick runs on the caller's transaction so the choice is
// consistent with the rest of the submit.
type AssigneePolicy interface {
	Pick(tx *gorm.DB) (accountdomain.User, error)
}

// NewAssigneePolicy builds the policy configured by ASSIGNMENT_POLICY.
func NewAssigneePolicy(cfg config.Config) AssigneePolicy {
	switch cfg.AssignmentPolicy {
	case config.AssignRoundRobin:
		return &roundRobinPolicy{}
	case config.AssignFixed:
		return &fixedPolicy{assigneeID: snowflake.ID(cfg.DefaultAssigneeID)}
	default:
		return lowestIDPolicy{}
	}
}

func activeStaff(tx *gorm.DB) ([]accountdomain.User, error) {
	var staff []accountdomain.User
	err := tx.
		Where("role = ? AND is_active = ?", actorcontext.RoleStaff, true).
		Order("id ASC").
		Find(&staff).Error
	if err != nil {
		return nil, err
	}
	if len(staff) == 0 {
		return nil, domain.ErrNoAssignee
	}
	return staff, nil
}

// lowestIDPolicy always assigns the longest-standing staff account.
type lowestIDPolicy struct{}

func (lowestIDPolicy) Pick(tx *gorm.DB) (accountdomain.User, error) {
	staff, err := activeStaff(tx)
	if err != nil {
		return accountdomain.User{}, err
	}
	return staff[0], nil
}

// roundRobinPolicy spreads requests across staff in id order. The cursor is
// process-local; fairness across restarts is not a goal.
type roundRobinPolicy struct {
	cursor atomic.Uint64
}

func (p *roundRobinPolicy) Pick(tx *gorm.DB) (accountdomain.User, error) {
	staff, err := activeStaff(tx)
	if err != nil {
		return accountdomain.User{}, err
	}
	n := p.cursor.Add(1) - 1
	return staff[n%uint64(len(staff))], nil
}

// fixedPolicy routes everything to one configured staff account.
type fixedPolicy struct {
	assigneeID snowflake.ID
}

func (p *fixedPolicy) Pick(tx *gorm.DB) (accountdomain.User, error) {
	if p.assigneeID == 0 {
		return accountdomain.User{}, domain.ErrNoAssignee
	}
	var user accountdomain.User
	err := tx.
		Where("id = ? AND role = ? AND is_active = ?", p.assigneeID, actorcontext.RoleStaff, true).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return accountdomain.User{}, domain.ErrNoAssignee
		}
		return accountdomain.User{}, err
	}
	return user, nil
}
