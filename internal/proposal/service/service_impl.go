package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/propoza/internal/account/domain"
	"github.com/smallbiznis/propoza/internal/actorcontext"
	auditdomain "github.com/smallbiznis/propoza/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/propoza/internal/catalog/domain"
	"github.com/smallbiznis/propoza/internal/clock"
	"github.com/smallbiznis/propoza/internal/config"
	"github.com/smallbiznis/propoza/internal/proposal/domain"
	"github.com/smallbiznis/propoza/internal/proposal/pricing"
	tpldomain "github.com/smallbiznis/propoza/internal/proposaltemplate/domain"
	"github.com/smallbiznis/propoza/internal/worksession"
	"github.com/smallbiznis/propoza/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const auditTargetProposal = "proposal"

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Cfg       config.Config
	Clock     clock.Clock
	Templates tpldomain.TemplateService
	Assignee  AssigneePolicy
	Sessions  worksession.Store
	Audit     auditdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	cfg       config.Config
	clock     clock.Clock
	templates tpldomain.TemplateService
	assignee  AssigneePolicy
	sessions  worksession.Store
	audit     auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("proposal.service"),
		genID:     p.GenID,
		cfg:       p.Cfg,
		clock:     p.Clock,
		templates: p.Templates,
		assignee:  p.Assignee,
		sessions:  p.Sessions,
		audit:     p.Audit,
	}
}

func (s *Service) actor(ctx context.Context) (actorcontext.Actor, error) {
	actor, ok := actorcontext.ActorFromContext(ctx)
	if !ok {
		return actorcontext.Actor{}, domain.ErrForbidden
	}
	return actor, nil
}

// newPublicToken mints an unguessable share link id: 32 random bytes,
// base64url without padding.
func newPublicToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// draftLockKey maps an (owner, customer) pair onto the advisory lock
// space guarding draft resolution for that pair.
func draftLockKey(ownerID, customerID snowflake.ID) int64 {
	h := fnv.New64a()
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(ownerID))
	binary.BigEndian.PutUint64(buf[8:], uint64(customerID))
	_, _ = h.Write(buf[:])
	return int64(h.Sum64())
}

func (s *Service) surchargePercent() int {
	return int(s.cfg.SurchargePercent)
}

func itemLines(items []domain.ProposalItem) []pricing.Line {
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Line{Qty: it.Qty, Price: it.Price, Discount: it.Discount})
	}
	return lines
}

func (s *Service) totalsFor(items []domain.ProposalItem) domain.Totals {
	subtotal, extra, total := pricing.Compute(itemLines(items), s.surchargePercent())
	return domain.Totals{Subtotal: subtotal, Extra: extra, Total: total}
}

// mutable checks view access first so callers can tell "not yours" from
// "yours but frozen".
func mutable(actor actorcontext.Actor, p domain.Proposal) error {
	policy := domain.PolicyFor(actor.Role)
	if !policy.CanView(actor, p) {
		return domain.ErrForbidden
	}
	if !policy.CanMutate(actor, p) {
		return domain.ErrNotEditable
	}
	return nil
}

func (s *Service) lockProposal(tx *gorm.DB, id snowflake.ID) (*domain.Proposal, error) {
	var p domain.Proposal
	err := db.LockForUpdate(tx).
		Preload("Items").
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Service) createDraft(tx *gorm.DB, owner, customer accountdomain.User, tpl tpldomain.ProposalTemplate) (domain.Proposal, error) {
	token, err := newPublicToken()
	if err != nil {
		return domain.Proposal{}, err
	}

	now := s.clock.Now()
	p := domain.Proposal{
		ID:               s.genID.Generate(),
		PublicToken:      token,
		OwnerID:          owner.ID,
		CustomerID:       customer.ID,
		TemplateID:       tpl.ID,
		TemplateSnapshot: tpl.Snapshot(),
		Title:            fmt.Sprintf("Proposal for %s", customer.Username),
		Status:           domain.StatusDraft,
		Meta:             datatypes.JSONMap{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := tx.Create(&p).Error; err != nil {
		return domain.Proposal{}, err
	}
	return p, nil
}

func (s *Service) ResolveCustomerDraft(ctx context.Context) (domain.Proposal, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.Proposal{}, err
	}
	if actor.IsStaff() {
		return domain.Proposal{}, domain.ErrForbidden
	}

	// Resolved outside the draft transaction so the template bootstrap
	// never runs while proposal rows are locked.
	tpl, err := s.templates.GetDefault(ctx)
	if err != nil {
		return domain.Proposal{}, err
	}

	var result domain.Proposal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// FOR UPDATE alone cannot guard the no-draft-yet case: with no
		// matching row there is nothing to lock and two first requests
		// would both fall through to createDraft.
		if err := db.AdvisoryXactLock(tx, draftLockKey(actor.ID, actor.ID)); err != nil {
			return err
		}

		var existing domain.Proposal
		err := db.LockForUpdate(tx).
			Preload("Items").
			Where("customer_id = ? AND owner_id = ? AND status = ?", actor.ID, actor.ID, domain.StatusDraft).
			Order("updated_at DESC, id DESC").
			First(&existing).Error
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		customer, err := s.loadUser(tx, actor.ID)
		if err != nil {
			return err
		}
		result, err = s.createDraft(tx, customer, customer, tpl)
		return err
	})
	return result, err
}

func (s *Service) ResolveStaffDraft(ctx context.Context, customerID snowflake.ID, forceNew bool) (domain.Proposal, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.Proposal{}, err
	}
	if !actor.IsStaff() {
		return domain.Proposal{}, domain.ErrForbidden
	}

	tpl, err := s.templates.GetDefault(ctx)
	if err != nil {
		return domain.Proposal{}, err
	}

	var result domain.Proposal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := db.AdvisoryXactLock(tx, draftLockKey(actor.ID, customerID)); err != nil {
			return err
		}

		customer, err := s.loadUser(tx, customerID)
		if err != nil {
			return err
		}
		if customer.Role != actorcontext.RoleCustomer {
			return domain.ErrNotFound
		}

		if !forceNew {
			var existing domain.Proposal
			err := db.LockForUpdate(tx).
				Preload("Items").
				Where("owner_id = ? AND customer_id = ? AND status = ?", actor.ID, customerID, domain.StatusDraft).
				Order("updated_at DESC, id DESC").
				First(&existing).Error
			if err == nil {
				result = existing
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		owner, err := s.loadUser(tx, actor.ID)
		if err != nil {
			return err
		}
		result, err = s.createDraft(tx, owner, customer, tpl)
		return err
	})
	if err != nil {
		return domain.Proposal{}, err
	}

	if err := s.sessions.Set(ctx, actor.ID, result.ID); err != nil {
		s.log.Warn("failed to set active proposal", zap.Error(err))
	}
	return result, nil
}

func (s *Service) loadUser(tx *gorm.DB, id snowflake.ID) (accountdomain.User, error) {
	var user accountdomain.User
	err := tx.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return accountdomain.User{}, domain.ErrNotFound
		}
		return accountdomain.User{}, err
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Proposal, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.Proposal{}, err
	}

	var p domain.Proposal
	err = s.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Proposal{}, domain.ErrNotFound
		}
		return domain.Proposal{}, err
	}

	if !domain.PolicyFor(actor.Role).CanView(actor, p) {
		return domain.Proposal{}, domain.ErrForbidden
	}

	if err := s.applyTimeout(ctx, &p); err != nil {
		return domain.Proposal{}, err
	}
	return p, nil
}

func (s *Service) GetByPublicToken(ctx context.Context, token string) (domain.Proposal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Proposal{}, domain.ErrNotFound
	}

	var p domain.Proposal
	err := s.db.WithContext(ctx).Preload("Items").Where("public_token = ?", token).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Proposal{}, domain.ErrNotFound
		}
		return domain.Proposal{}, err
	}

	if err := s.applyTimeout(ctx, &p); err != nil {
		return domain.Proposal{}, err
	}
	return p, nil
}

// eventTime resolves the proposal's event timestamp: the first-class column
// wins, the side channel is the fallback for rows written before the column
// existed.
func eventTime(p domain.Proposal) *time.Time {
	if p.EventDatetime != nil {
		return p.EventDatetime
	}
	return domain.DecodeMeta(p.Meta).ParseEventDatetime()
}

// applyTimeout is the lazy auto-close: evaluated on single-proposal reads,
// never by a scheduler or in list queries. A proposal past its window that
// nobody opens stays stale until next access.
func (s *Service) applyTimeout(ctx context.Context, p *domain.Proposal) error {
	if p.Status != domain.StatusDraft && p.Status != domain.StatusConfirmed {
		return nil
	}
	dt := eventTime(*p)
	if dt == nil {
		return nil
	}
	deadline := dt.Add(time.Duration(s.cfg.AutoCloseHours) * time.Hour)
	if s.clock.Now().Before(deadline) {
		return nil
	}

	p.Status = domain.StatusSent
	if err := s.db.WithContext(ctx).Model(&domain.Proposal{}).
		Where("id = ?", p.ID).
		Update("status", domain.StatusSent).Error; err != nil {
		return err
	}
	if err := s.sessions.Clear(ctx, p.OwnerID); err != nil {
		s.log.Warn("failed to clear active proposal", zap.Error(err))
	}
	s.audit.Record(ctx, auditdomain.Entry{
		Action:     "proposal.auto_close",
		TargetType: auditTargetProposal,
		TargetID:   p.ID,
	})
	return nil
}

func (s *Service) List(ctx context.Context) (domain.ProposalList, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.ProposalList{}, err
	}

	if !actor.IsStaff() {
		var own []domain.Proposal
		err := s.db.WithContext(ctx).
			Where("customer_id = ?", actor.ID).
			Order("updated_at DESC").
			Find(&own).Error
		return domain.ProposalList{Active: own}, err
	}

	var list domain.ProposalList
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Where("owner_id = ?", actor.ID).Order("updated_at DESC")
	}
	if err := base().Where("status = ?", domain.StatusDraft).Find(&list.Active).Error; err != nil {
		return domain.ProposalList{}, err
	}
	if err := base().Where("status = ?", domain.StatusRequested).Find(&list.Requests).Error; err != nil {
		return domain.ProposalList{}, err
	}
	if err := base().
		Where("status NOT IN ?", []domain.Status{domain.StatusDraft, domain.StatusRequested}).
		Limit(50).
		Find(&list.History).Error; err != nil {
		return domain.ProposalList{}, err
	}
	return list, nil
}

func (s *Service) AddItem(ctx context.Context, proposalID snowflake.ID, req domain.AddItemRequest) (domain.ItemResult, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.ItemResult{}, err
	}

	if req.Qty <= 0 {
		return domain.ItemResult{}, domain.NewValidationError("qty", "positive", "qty must be greater than zero")
	}
	mode := req.Mode
	if mode == "" {
		mode = domain.AddModeIncrement
	}
	if mode != domain.AddModeIncrement && mode != domain.AddModeSet {
		return domain.ItemResult{}, domain.NewValidationError("mode", "invalid", "mode must be increment or set")
	}

	var result domain.ItemResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.lockProposal(tx, proposalID)
		if err != nil {
			return err
		}
		if err := mutable(actor, *p); err != nil {
			return err
		}

		svc, err := s.loadService(tx, req.ServiceID)
		if err != nil {
			return err
		}
		// Customers only shop the live catalog; staff may quote retired
		// services.
		if !svc.IsActive && !actor.IsStaff() {
			return domain.NewValidationError("service_id", "inactive_service", "service is not available")
		}

		qty := req.Qty
		if !svc.Repeatable {
			qty = 1
		}

		now := s.clock.Now()
		item := domain.ProposalItem{
			ID:         s.genID.Generate(),
			ProposalID: p.ID,
			ServiceID:  svc.ID,
			Qty:        qty,
			Price:      svc.Price(),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		insert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "proposal_id"}, {Name: "service_id"}},
			DoNothing: true,
		}).Create(&item)
		if insert.Error != nil {
			return insert.Error
		}

		if insert.RowsAffected == 0 {
			// Line exists; converge on it under lock.
			var existing domain.ProposalItem
			if err := db.LockForUpdate(tx).
				Where("proposal_id = ? AND service_id = ?", p.ID, svc.ID).
				First(&existing).Error; err != nil {
				return err
			}
			switch {
			case !svc.Repeatable:
				existing.Qty = 1
			case mode == domain.AddModeIncrement:
				existing.Qty += req.Qty
			default:
				existing.Qty = req.Qty
			}
			existing.UpdatedAt = now
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			item = existing
		}

		items, err := s.listItems(tx, p.ID)
		if err != nil {
			return err
		}
		result = domain.ItemResult{
			Item:      item,
			LineTotal: item.LineTotal(),
			Totals:    s.totalsFor(items),
		}
		return s.touch(tx, p.ID, now)
	})
	return result, err
}

func (s *Service) loadService(tx *gorm.DB, id snowflake.ID) (catalogdomain.Service, error) {
	var svc catalogdomain.Service
	err := tx.Where("id = ?", id).First(&svc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return catalogdomain.Service{}, domain.ErrNotFound
		}
		return catalogdomain.Service{}, err
	}
	return svc, nil
}

func (s *Service) listItems(tx *gorm.DB, proposalID snowflake.ID) ([]domain.ProposalItem, error) {
	var items []domain.ProposalItem
	err := tx.Where("proposal_id = ?", proposalID).Order("created_at ASC").Find(&items).Error
	return items, err
}

func (s *Service) touch(tx *gorm.DB, proposalID snowflake.ID, now time.Time) error {
	return tx.Model(&domain.Proposal{}).Where("id = ?", proposalID).Update("updated_at", now).Error
}

// lockItem resolves an item together with its (locked) proposal and checks
// mutation rights.
func (s *Service) lockItem(tx *gorm.DB, actor actorcontext.Actor, itemID snowflake.ID) (*domain.ProposalItem, *domain.Proposal, error) {
	var item domain.ProposalItem
	err := tx.Where("id = ?", itemID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, err
	}

	p, err := s.lockProposal(tx, item.ProposalID)
	if err != nil {
		return nil, nil, err
	}
	if err := mutable(actor, *p); err != nil {
		return nil, nil, err
	}
	return &item, p, nil
}

func (s *Service) UpdateItemQty(ctx context.Context, itemID snowflake.ID, action domain.QtyAction, qty int) (domain.ItemResult, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.ItemResult{}, err
	}
	switch action {
	case domain.QtyInc, domain.QtyDec:
	case domain.QtySet:
		if qty < 1 {
			return domain.ItemResult{}, domain.NewValidationError("qty", "invalid_qty", "qty must be positive")
		}
	default:
		return domain.ItemResult{}, domain.NewValidationError("action", "invalid", "action must be inc, dec or set")
	}

	var result domain.ItemResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, p, err := s.lockItem(tx, actor, itemID)
		if err != nil {
			return err
		}

		svc, err := s.loadService(tx, item.ServiceID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		// A since-removed service keeps the line adjustable as repeatable.
		switch {
		case err == nil && !svc.Repeatable:
			item.Qty = 1
		case action == domain.QtySet:
			item.Qty = qty
		case action == domain.QtyInc:
			item.Qty++
		case item.Qty > 1:
			item.Qty--
		}

		now := s.clock.Now()
		item.UpdatedAt = now
		if err := tx.Save(item).Error; err != nil {
			return err
		}

		items, err := s.listItems(tx, p.ID)
		if err != nil {
			return err
		}
		result = domain.ItemResult{
			Item:      *item,
			LineTotal: item.LineTotal(),
			Totals:    s.totalsFor(items),
		}
		return s.touch(tx, p.ID, now)
	})
	return result, err
}

func (s *Service) UpdateItemPrice(ctx context.Context, itemID snowflake.ID, price int64) (domain.ItemResult, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.ItemResult{}, err
	}
	if !actor.IsStaff() {
		return domain.ItemResult{}, domain.ErrForbidden
	}
	if price < 0 {
		price = 0
	}

	var result domain.ItemResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, p, err := s.lockItem(tx, actor, itemID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		item.Price = price
		item.UpdatedAt = now
		if err := tx.Save(item).Error; err != nil {
			return err
		}

		items, err := s.listItems(tx, p.ID)
		if err != nil {
			return err
		}
		result = domain.ItemResult{
			Item:      *item,
			LineTotal: item.LineTotal(),
			Totals:    s.totalsFor(items),
		}
		return s.touch(tx, p.ID, now)
	})
	return result, err
}

func (s *Service) RemoveItem(ctx context.Context, itemID snowflake.ID) error {
	actor, err := s.actor(ctx)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, p, err := s.lockItem(tx, actor, itemID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&domain.ProposalItem{}, "id = ?", item.ID).Error; err != nil {
			return err
		}
		return s.touch(tx, p.ID, s.clock.Now())
	})
}

func (s *Service) Clear(ctx context.Context, proposalID snowflake.ID) error {
	actor, err := s.actor(ctx)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.lockProposal(tx, proposalID)
		if err != nil {
			return err
		}
		if err := mutable(actor, *p); err != nil {
			return err
		}
		if err := tx.Where("proposal_id = ?", p.ID).Delete(&domain.ProposalItem{}).Error; err != nil {
			return err
		}
		return s.touch(tx, p.ID, s.clock.Now())
	})
}

func (s *Service) Autosave(ctx context.Context, id snowflake.ID, req domain.AutosaveRequest) (domain.Proposal, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.Proposal{}, err
	}

	var tpl *tpldomain.ProposalTemplate
	if req.TemplateID != nil {
		found, err := s.templates.Get(ctx, *req.TemplateID)
		if err != nil {
			return domain.Proposal{}, err
		}
		tpl = &found
	}

	var result domain.Proposal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.lockProposal(tx, id)
		if err != nil {
			return err
		}
		if err := mutable(actor, *p); err != nil {
			return err
		}

		meta := domain.DecodeMeta(p.Meta)

		if req.Title != nil {
			if title := strings.TrimSpace(*req.Title); title != "" {
				p.Title = title
			}
		}

		if tpl != nil {
			p.TemplateID = tpl.ID
			p.TemplateSnapshot = tpl.Snapshot()
		}

		if req.EventTitle != nil {
			p.EventTitle = strings.TrimSpace(*req.EventTitle)
			meta.EventTitle = p.EventTitle
		}
		if req.EventAddress != nil {
			p.EventLocation = strings.TrimSpace(*req.EventAddress)
			meta.EventAddress = p.EventLocation
		}
		if req.EventAddressURL != nil {
			meta.EventAddressURL = strings.TrimSpace(*req.EventAddressURL)
		}
		if req.DriveURL != nil {
			p.DriveLink = strings.TrimSpace(*req.DriveURL)
			meta.DriveURL = p.DriveLink
		}
		if req.EventDescription != nil {
			p.EventDescription = strings.TrimSpace(*req.EventDescription)
			meta.EventDescription = p.EventDescription
		}
		if req.EventDatetime != nil {
			raw := strings.TrimSpace(*req.EventDatetime)
			meta.EventDatetime = raw
			if raw == "" {
				p.EventDatetime = nil
			} else if dt := (domain.Meta{EventDatetime: raw}).ParseEventDatetime(); dt != nil {
				p.EventDatetime = dt
			}
		}

		p.Meta = meta.Encode()
		p.UpdatedAt = s.clock.Now()
		if err := tx.Omit("Items").Save(p).Error; err != nil {
			return err
		}
		result = *p
		return nil
	})
	return result, err
}

func (s *Service) UploadPhoto(ctx context.Context, id snowflake.ID, path string) (domain.Proposal, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.Proposal{}, err
	}
	if strings.TrimSpace(path) == "" {
		return domain.Proposal{}, domain.NewValidationError("photo", "required", "photo file is required")
	}

	var result domain.Proposal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.lockProposal(tx, id)
		if err != nil {
			return err
		}
		if err := mutable(actor, *p); err != nil {
			return err
		}
		p.PhotoPath = path
		p.UpdatedAt = s.clock.Now()
		if err := tx.Omit("Items").Save(p).Error; err != nil {
			return err
		}
		result = *p
		return nil
	})
	return result, err
}

func (s *Service) Submit(ctx context.Context, id snowflake.ID) (domain.Proposal, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.Proposal{}, err
	}

	var entry auditdomain.Entry
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.lockProposal(tx, id)
		if err != nil {
			return err
		}
		if err := mutable(actor, *p); err != nil {
			return err
		}
		if len(p.Items) == 0 {
			return domain.ErrEmptyProposal
		}

		if actor.IsStaff() {
			entry, err = s.submitStaff(tx, actor, p)
		} else {
			entry, err = s.submitCustomer(tx, actor, p)
		}
		return err
	})
	if err != nil {
		return domain.Proposal{}, err
	}
	s.audit.Record(ctx, entry)

	if actor.IsStaff() {
		if err := s.sessions.Clear(ctx, actor.ID); err != nil {
			s.log.Warn("failed to clear active proposal", zap.Error(err))
		}
	}
	return s.reload(ctx, id), nil
}

func (s *Service) freezeTotals(p *domain.Proposal) {
	subtotal, extra, total := pricing.Compute(itemLines(p.Items), s.surchargePercent())
	p.FixedSubtotal = &subtotal
	p.FixedExtra = &extra
	p.FixedTotal = &total
}

func (s *Service) submitStaff(tx *gorm.DB, actor actorcontext.Actor, p *domain.Proposal) (auditdomain.Entry, error) {
	s.freezeTotals(p)
	p.Status = domain.StatusSent
	p.UpdatedAt = s.clock.Now()
	if err := tx.Omit("Items").Save(p).Error; err != nil {
		return auditdomain.Entry{}, err
	}
	return auditdomain.Entry{
		Actor:      actor,
		Action:     "proposal.sent",
		TargetType: auditTargetProposal,
		TargetID:   p.ID,
		Metadata:   datatypes.JSONMap{"total": *p.FixedTotal},
	}, nil
}

func (s *Service) submitCustomer(tx *gorm.DB, actor actorcontext.Actor, p *domain.Proposal) (auditdomain.Entry, error) {
	manager, err := s.assignee.Pick(tx)
	if err != nil {
		return auditdomain.Entry{}, err
	}

	customer, err := s.loadUser(tx, actor.ID)
	if err != nil {
		return auditdomain.Entry{}, err
	}

	now := s.clock.Now()
	// Contact details are stamped as of this moment so staff sees what the
	// customer submitted with, even if the profile changes later.
	meta := domain.DecodeMeta(p.Meta)
	meta.CustomerRequestedAt = now.Format(time.RFC3339)
	meta.CustomerUsername = customer.Username
	meta.CustomerFullName = customer.FullName
	meta.CustomerPhone = customer.Phone
	meta.CustomerEmail = customer.Email
	p.Meta = meta.Encode()

	p.OwnerID = manager.ID
	s.freezeTotals(p)
	p.Status = domain.StatusRequested
	p.UpdatedAt = now
	if err := tx.Omit("Items").Save(p).Error; err != nil {
		return auditdomain.Entry{}, err
	}
	return auditdomain.Entry{
		Actor:      actor,
		Action:     "proposal.requested",
		TargetType: auditTargetProposal,
		TargetID:   p.ID,
		Metadata:   datatypes.JSONMap{"assignee_id": manager.ID.String(), "total": *p.FixedTotal},
	}, nil
}

func (s *Service) reload(ctx context.Context, id snowflake.ID) domain.Proposal {
	var p domain.Proposal
	if err := s.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&p).Error; err != nil {
		s.log.Warn("reload after transition failed", zap.Error(err))
	}
	return p
}

// transition runs a guarded staff-only status change.
func (s *Service) transition(ctx context.Context, id snowflake.ID, guard func(domain.Status) bool, apply func(*domain.Proposal), action string) (domain.Proposal, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.Proposal{}, err
	}
	if !actor.IsStaff() {
		return domain.Proposal{}, domain.ErrForbidden
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.lockProposal(tx, id)
		if err != nil {
			return err
		}
		if p.OwnerID != actor.ID {
			return domain.ErrForbidden
		}
		if !guard(p.Status) {
			return domain.ErrNotEditable
		}

		apply(p)
		p.UpdatedAt = s.clock.Now()
		return tx.Omit("Items").Save(p).Error
	})
	if err != nil {
		return domain.Proposal{}, err
	}
	s.audit.Record(ctx, auditdomain.Entry{
		Actor:      actor,
		Action:     action,
		TargetType: auditTargetProposal,
		TargetID:   id,
	})
	return s.reload(ctx, id), nil
}

func (s *Service) Accept(ctx context.Context, id snowflake.ID) (domain.Proposal, error) {
	p, err := s.transition(ctx, id,
		func(st domain.Status) bool { return st == domain.StatusRequested },
		func(p *domain.Proposal) { p.Status = domain.StatusDraft },
		"proposal.accepted",
	)
	if err != nil {
		return domain.Proposal{}, err
	}
	if actor, ok := actorcontext.ActorFromContext(ctx); ok {
		if err := s.sessions.Set(ctx, actor.ID, p.ID); err != nil {
			s.log.Warn("failed to set active proposal", zap.Error(err))
		}
	}
	return p, nil
}

func (s *Service) Reject(ctx context.Context, id snowflake.ID) (domain.Proposal, error) {
	return s.transition(ctx, id,
		func(st domain.Status) bool { return st == domain.StatusRequested },
		func(p *domain.Proposal) { p.Status = domain.StatusRejected },
		"proposal.rejected",
	)
}

func (s *Service) Reactivate(ctx context.Context, id snowflake.ID) (domain.Proposal, error) {
	now := s.clock.Now()
	p, err := s.transition(ctx, id,
		domain.Status.Reactivatable,
		func(p *domain.Proposal) {
			p.Status = domain.StatusDraft
			// Restart the auto-close window from right now.
			p.EventDatetime = &now
			meta := domain.DecodeMeta(p.Meta)
			meta.EventDatetime = now.Format(domain.EventDatetimeLayout)
			p.Meta = meta.Encode()
		},
		"proposal.reactivated",
	)
	if err != nil {
		return domain.Proposal{}, err
	}
	if actor, ok := actorcontext.ActorFromContext(ctx); ok {
		if err := s.sessions.Set(ctx, actor.ID, p.ID); err != nil {
			s.log.Warn("failed to set active proposal", zap.Error(err))
		}
	}
	return p, nil
}
