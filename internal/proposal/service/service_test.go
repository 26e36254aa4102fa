package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/smallbiznis/propoza/internal/account/domain"
	"github.com/smallbiznis/propoza/internal/actorcontext"
	auditdomain "github.com/smallbiznis/propoza/internal/audit/domain"
	auditservice "github.com/smallbiznis/propoza/internal/audit/service"
	catalogdomain "github.com/smallbiznis/propoza/internal/catalog/domain"
	"github.com/smallbiznis/propoza/internal/clock"
	"github.com/smallbiznis/propoza/internal/config"
	"github.com/smallbiznis/propoza/internal/proposal/domain"
	tpldomain "github.com/smallbiznis/propoza/internal/proposaltemplate/domain"
	tplservice "github.com/smallbiznis/propoza/internal/proposaltemplate/service"
	"github.com/smallbiznis/propoza/internal/worksession"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	svc      domain.Service
	db       *gorm.DB
	clock    *clock.FakeClock
	genID    *snowflake.Node
	sessions worksession.Store

	staff    accountdomain.User
	customer accountdomain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "proposal_test.db")
	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, gdb.AutoMigrate(
		&accountdomain.User{},
		&catalogdomain.Category{},
		&catalogdomain.Service{},
		&tpldomain.EventType{},
		&tpldomain.ProposalTemplate{},
		&domain.Proposal{},
		&domain.ProposalItem{},
		&auditdomain.AuditLog{},
	))

	genID, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	cfg := config.Config{
		SurchargePercent: 20,
		AutoCloseHours:   16,
		AssignmentPolicy: config.AssignLowestID,
	}

	templates := tplservice.NewService(tplservice.Params{DB: gdb, Log: log, GenID: genID, Clock: fake})
	audit := auditservice.NewService(auditservice.Params{DB: gdb, Log: log, GenID: genID})
	sessions := worksession.NewMemoryStore()

	svc := NewService(Params{
		DB:        gdb,
		Log:       log,
		GenID:     genID,
		Cfg:       cfg,
		Clock:     fake,
		Templates: templates,
		Assignee:  NewAssigneePolicy(cfg),
		Sessions:  sessions,
		Audit:     audit,
	})

	f := &fixture{
		svc:      svc,
		db:       gdb,
		clock:    fake,
		genID:    genID,
		sessions: sessions,
	}
	f.staff = f.createUser(t, "manager", actorcontext.RoleStaff)
	f.customer = f.createUser(t, "alice", actorcontext.RoleCustomer)
	return f
}

func (f *fixture) createUser(t *testing.T, username string, role actorcontext.Role) accountdomain.User {
	t.Helper()
	user := accountdomain.User{
		ID:       f.genID.Generate(),
		Username: username,
		Email:    username + "@example.com",
		Phone:    "+100" + username,
		FullName: username + " Doe",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, f.db.Create(&user).Error)
	return user
}

func (f *fixture) createService(t *testing.T, name string, price int64, repeatable bool) catalogdomain.Service {
	t.Helper()
	category := catalogdomain.Category{ID: f.genID.Generate(), Name: "Category " + name, IsActive: true}
	require.NoError(t, f.db.Create(&category).Error)
	svc := catalogdomain.Service{
		ID:         f.genID.Generate(),
		CategoryID: category.ID,
		Name:       name,
		BasePrice:  &price,
		Repeatable: repeatable,
		IsActive:   true,
	}
	require.NoError(t, f.db.Create(&svc).Error)
	return svc
}

func (f *fixture) ctx(user accountdomain.User) context.Context {
	return actorcontext.WithActor(context.Background(), user.Actor())
}

func TestResolveCustomerDraftIsStable(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(f.customer)

	first, err := f.svc.ResolveCustomerDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, first.Status)
	assert.Equal(t, f.customer.ID, first.OwnerID)
	assert.Equal(t, f.customer.ID, first.CustomerID)
	assert.Equal(t, "Proposal for alice", first.Title)

	second, err := f.svc.ResolveCustomerDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestResolveCustomerDraftCreatesFreshAfterSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(f.customer)
	catalog := f.createService(t, "Band", 1000, true)

	draft, err := f.svc.ResolveCustomerDraft(ctx)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, draft.ID, domain.AddItemRequest{ServiceID: catalog.ID, Qty: 1})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, draft.ID)
	require.NoError(t, err)

	next, err := f.svc.ResolveCustomerDraft(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, draft.ID, next.ID)
}

func TestResolveStaffDraftPerPair(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(f.staff)
	other := f.createUser(t, "bob", actorcontext.RoleCustomer)

	first, err := f.svc.ResolveStaffDraft(ctx, f.customer.ID, false)
	require.NoError(t, err)
	again, err := f.svc.ResolveStaffDraft(ctx, f.customer.ID, false)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	forOther, err := f.svc.ResolveStaffDraft(ctx, other.ID, false)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, forOther.ID)

	forced, err := f.svc.ResolveStaffDraft(ctx, f.customer.ID, true)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, forced.ID)

	active, ok, err := f.sessions.Get(context.Background(), f.staff.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, forced.ID, active)
}

func TestResolveStaffDraftRejectsCustomers(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ResolveStaffDraft(f.ctx(f.customer), f.customer.ID, false)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestAddItemNonRepeatableClampsToOne(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(f.customer)
	venue := f.createService(t, "Venue", 50000, false)

	draft, err := f.svc.ResolveCustomerDraft(ctx)
	require.NoError(t, err)

	res, err := f.svc.AddItem(ctx, draft.ID, domain.AddItemRequest{ServiceID: venue.ID, Qty: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Item.Qty)

	res, err = f.svc.AddItem(ctx, draft.ID, domain.AddItemRequest{ServiceID: venue.ID, Qty: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Item.Qty)

	var count int64
	require.NoError(t, f.db.Model(&domain.ProposalItem{}).
		Where("proposal_id = ?", draft.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAddItemRepeatableAccumulatesAndSets(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(f.customer)
	band := f.createService(t, "Band", 1000, true)

	draft, err := f.svc.ResolveCustomerDraft(ctx)
	require.NoError(t, err)

	res, err := f.svc.AddItem(ctx, draft.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Item.Qty)
	assert.Equal(t, int64(1000), res.Item.Price)

	res, err = f.svc.AddItem(ctx, draft.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 3})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Item.Qty)

	res, err = f.svc.AddItem(ctx, draft.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 2, Mode: domain.AddModeSet})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Item.Qty)

	assert.Equal(t, int64(2000), res.Totals.Subtotal)
	assert.Equal(t, int64(400), res.Totals.Extra)
	assert.Equal(t, int64(2400), res.Totals.Total)
}

func TestAddItemValidation(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(f.customer)
	band := f.createService(t, "Band", 1000, true)

	draft, err := f.svc.ResolveCustomerDraft(ctx)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, draft.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 0})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "qty", verr.Field)
}

func TestAddItemInactiveServiceHiddenFromCustomers(t *testing.T) {
	f := newFixture(t)
	retired := f.createService(t, "Retired", 500, true)
	require.NoError(t, f.db.Model(&catalogdomain.Service{}).
		Where("id = ?", retired.ID).Update("is_active", false).Error)

	customerCtx := f.ctx(f.customer)
	draft, err := f.svc.ResolveCustomerDraft(customerCtx)
	require.NoError(t, err)
	_, err = f.svc.AddItem(customerCtx, draft.ID, domain.AddItemRequest{ServiceID: retired.ID, Qty: 1})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "service_id", verr.Field)

	staffCtx := f.ctx(f.staff)
	staffDraft, err := f.svc.ResolveStaffDraft(staffCtx, f.customer.ID, false)
	require.NoError(t, err)
	_, err = f.svc.AddItem(staffCtx, staffDraft.ID, domain.AddItemRequest{ServiceID: retired.ID, Qty: 1})
	assert.NoError(t, err)
}

func TestUpdateItemQtyFloorsAtOne(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(f.customer)
	band := f.createService(t, "Band", 1000, true)

	draft, err := f.svc.ResolveCustomerDraft(ctx)
	require.NoError(t, err)
	added, err := f.svc.AddItem(ctx, draft.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 2})
	require.NoError(t, err)

	res, err := f.svc.UpdateItemQty(ctx, added.Item.ID, domain.QtyInc, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Item.Qty)

	for i := 0; i < 5; i++ {
		res, err = f.svc.UpdateItemQty(ctx, added.Item.ID, domain.QtyDec, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, res.Item.Qty)

	res, err = f.svc.UpdateItemQty(ctx, added.Item.ID, domain.QtySet, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Item.Qty)

	_, err = f.svc.UpdateItemQty(ctx, added.Item.ID, domain.QtySet, 0)
	var vErr *domain.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestUpdateItemQtySurfacesStorageErrors(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(f.customer)
	band := f.createService(t, "Band", 1000, true)

	draft, err := f.svc.ResolveCustomerDraft(ctx)
	require.NoError(t, err)
	added, err := f.svc.AddItem(ctx, draft.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 2})
	require.NoError(t, err)

	// A broken catalog read must fail the call, not fall back to the
	// removed-service path.
	require.NoError(t, f.db.Migrator().DropTable(&catalogdomain.Service{}))

	_, err = f.svc.UpdateItemQty(ctx, added.Item.ID, domain.QtyInc, 0)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestDraftLockKeyStablePerPair(t *testing.T) {
	key := draftLockKey(1, 2)
	assert.Equal(t, key, draftLockKey(1, 2))
	assert.NotEqual(t, key, draftLockKey(2, 1))
	assert.NotEqual(t, key, draftLockKey(1, 3))
}

func TestUpdateItemPriceStaffOnlyAndClamped(t *testing.T) {
	f := newFixture(t)
	staffCtx := f.ctx(f.staff)
	band := f.createService(t, "Band", 1000, true)

	draft, err := f.svc.ResolveStaffDraft(staffCtx, f.customer.ID, false)
	require.NoError(t, err)
	added, err := f.svc.AddItem(staffCtx, draft.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 1})
	require.NoError(t, err)

	_, err = f.svc.UpdateItemPrice(f.ctx(f.customer), added.Item.ID, 500)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	res, err := f.svc.UpdateItemPrice(staffCtx, added.Item.ID, -50)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Item.Price)
	assert.Equal(t, int64(0), res.Totals.Total)
}

func TestRemoveAndClearItems(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(f.customer)
	band := f.createService(t, "Band", 1000, true)
	dj := f.createService(t, "DJ", 700, true)

	draft, err := f.svc.ResolveCustomerDraft(ctx)
	require.NoError(t, err)
	added, err := f.svc.AddItem(ctx, draft.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 1})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, draft.ID, domain.AddItemRequest{ServiceID: dj.ID, Qty: 1})
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveItem(ctx, added.Item.ID))
	assert.ErrorIs(t, f.svc.RemoveItem(ctx, added.Item.ID), domain.ErrNotFound)

	require.NoError(t, f.svc.Clear(ctx, draft.ID))
	var count int64
	require.NoError(t, f.db.Model(&domain.ProposalItem{}).
		Where("proposal_id = ?", draft.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestSubmitEmptyProposalRejected(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(f.customer)

	draft, err := f.svc.ResolveCustomerDraft(ctx)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, draft.ID)
	assert.ErrorIs(t, err, domain.ErrEmptyProposal)
}

func TestCustomerSubmitReassignsAndFreezes(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(f.customer)
	band := f.createService(t, "Band", 1000, true)

	draft, err := f.svc.ResolveCustomerDraft(ctx)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, draft.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 3})
	require.NoError(t, err)

	submitted, err := f.svc.Submit(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRequested, submitted.Status)
	assert.Equal(t, f.staff.ID, submitted.OwnerID)
	assert.Equal(t, f.customer.ID, submitted.CustomerID)

	require.NotNil(t, submitted.FixedSubtotal)
	assert.Equal(t, int64(3000), *submitted.FixedSubtotal)
	assert.Equal(t, int64(600), *submitted.FixedExtra)
	assert.Equal(t, int64(3600), *submitted.FixedTotal)

	meta := domain.DecodeMeta(submitted.Meta)
	assert.Equal(t, "alice", meta.CustomerUsername)
	assert.Equal(t, "alice Doe", meta.CustomerFullName)
	assert.NotEmpty(t, meta.CustomerRequestedAt)

	// Staff edits after the freeze must not move the frozen totals.
	staffCtx := f.ctx(f.staff)
	item := submitted.Items[0]
	_, err = f.svc.UpdateItemPrice(staffCtx, item.ID, 9999)
	require.NoError(t, err)

	after, err := f.svc.Get(staffCtx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), *after.FixedTotal)
}

func TestCustomerCannotEditAfterSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(f.customer)
	band := f.createService(t, "Band", 1000, true)

	draft, err := f.svc.ResolveCustomerDraft(ctx)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, draft.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 1})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, draft.ID)
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, draft.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 1})
	assert.ErrorIs(t, err, domain.ErrNotEditable)
	_, err = f.svc.Submit(ctx, draft.ID)
	assert.ErrorIs(t, err, domain.ErrNotEditable)
}

func TestStaffSubmitSendsAndClearsActive(t *testing.T) {
	f := newFixture(t)
	staffCtx := f.ctx(f.staff)
	band := f.createService(t, "Band", 1000, true)

	draft, err := f.svc.ResolveStaffDraft(staffCtx, f.customer.ID, false)
	require.NoError(t, err)
	_, err = f.svc.AddItem(staffCtx, draft.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 2})
	require.NoError(t, err)

	sent, err := f.svc.Submit(staffCtx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, sent.Status)
	assert.Equal(t, int64(2400), *sent.FixedTotal)

	_, ok, err := f.sessions.Get(context.Background(), f.staff.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAcceptAndRejectRequireRequested(t *testing.T) {
	f := newFixture(t)
	customerCtx := f.ctx(f.customer)
	staffCtx := f.ctx(f.staff)
	band := f.createService(t, "Band", 1000, true)

	draft, err := f.svc.ResolveCustomerDraft(customerCtx)
	require.NoError(t, err)
	_, err = f.svc.AddItem(customerCtx, draft.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 1})
	require.NoError(t, err)
	_, err = f.svc.Submit(customerCtx, draft.ID)
	require.NoError(t, err)

	accepted, err := f.svc.Accept(staffCtx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, accepted.Status)

	active, ok, err := f.sessions.Get(context.Background(), f.staff.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, draft.ID, active)

	// Already back in DRAFT, a second accept is a guard violation.
	_, err = f.svc.Accept(staffCtx, draft.ID)
	assert.ErrorIs(t, err, domain.ErrNotEditable)
	_, err = f.svc.Reject(staffCtx, draft.ID)
	assert.ErrorIs(t, err, domain.ErrNotEditable)
}

func TestRejectTerminates(t *testing.T) {
	f := newFixture(t)
	customerCtx := f.ctx(f.customer)
	staffCtx := f.ctx(f.staff)
	band := f.createService(t, "Band", 1000, true)

	draft, err := f.svc.ResolveCustomerDraft(customerCtx)
	require.NoError(t, err)
	_, err = f.svc.AddItem(customerCtx, draft.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 1})
	require.NoError(t, err)
	_, err = f.svc.Submit(customerCtx, draft.ID)
	require.NoError(t, err)

	rejected, err := f.svc.Reject(staffCtx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)
}

func TestReactivateResetsEventClock(t *testing.T) {
	f := newFixture(t)
	staffCtx := f.ctx(f.staff)
	band := f.createService(t, "Band", 1000, true)

	draft, err := f.svc.ResolveStaffDraft(staffCtx, f.customer.ID, false)
	require.NoError(t, err)
	_, err = f.svc.AddItem(staffCtx, draft.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 1})
	require.NoError(t, err)
	_, err = f.svc.Submit(staffCtx, draft.ID)
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)
	reactivated, err := f.svc.Reactivate(staffCtx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, reactivated.Status)
	require.NotNil(t, reactivated.EventDatetime)
	assert.True(t, reactivated.EventDatetime.Equal(f.clock.Now()))

	meta := domain.DecodeMeta(reactivated.Meta)
	assert.Equal(t, f.clock.Now().Format(domain.EventDatetimeLayout), meta.EventDatetime)
}

func TestReactivateFromRequested(t *testing.T) {
	f := newFixture(t)
	customerCtx := f.ctx(f.customer)
	staffCtx := f.ctx(f.staff)
	band := f.createService(t, "Band", 1000, true)

	draft, err := f.svc.ResolveCustomerDraft(customerCtx)
	require.NoError(t, err)
	_, err = f.svc.AddItem(customerCtx, draft.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 1})
	require.NoError(t, err)
	_, err = f.svc.Submit(customerCtx, draft.ID)
	require.NoError(t, err)

	reactivated, err := f.svc.Reactivate(staffCtx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, reactivated.Status)
}

func TestAutoCloseAfterWindow(t *testing.T) {
	f := newFixture(t)
	staffCtx := f.ctx(f.staff)

	draft, err := f.svc.ResolveStaffDraft(staffCtx, f.customer.ID, false)
	require.NoError(t, err)

	when := f.clock.Now().Format(domain.EventDatetimeLayout)
	_, err = f.svc.Autosave(staffCtx, draft.ID, domain.AutosaveRequest{EventDatetime: &when})
	require.NoError(t, err)

	f.clock.Advance(15 * time.Hour)
	fresh, err := f.svc.Get(staffCtx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, fresh.Status)

	f.clock.Advance(2 * time.Hour)
	closed, err := f.svc.Get(staffCtx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, closed.Status)

	_, ok, err := f.sessions.Get(context.Background(), f.staff.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAutoCloseFallsBackToMetaDatetime(t *testing.T) {
	f := newFixture(t)
	staffCtx := f.ctx(f.staff)

	draft, err := f.svc.ResolveStaffDraft(staffCtx, f.customer.ID, false)
	require.NoError(t, err)

	// Row written before the first-class column existed: the timestamp
	// lives only in the side channel.
	meta := domain.Meta{EventDatetime: f.clock.Now().Add(-17 * time.Hour).Format(domain.EventDatetimeLayout)}
	require.NoError(t, f.db.Model(&domain.Proposal{}).
		Where("id = ?", draft.ID).Update("meta", meta.Encode()).Error)

	closed, err := f.svc.Get(staffCtx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, closed.Status)
}

func TestAutoCloseIgnoresTerminalStatuses(t *testing.T) {
	f := newFixture(t)
	staffCtx := f.ctx(f.staff)
	band := f.createService(t, "Band", 1000, true)

	draft, err := f.svc.ResolveStaffDraft(staffCtx, f.customer.ID, false)
	require.NoError(t, err)
	_, err = f.svc.AddItem(staffCtx, draft.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 1})
	require.NoError(t, err)

	when := f.clock.Now().Format(domain.EventDatetimeLayout)
	_, err = f.svc.Autosave(staffCtx, draft.ID, domain.AutosaveRequest{EventDatetime: &when})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&domain.Proposal{}).
		Where("id = ?", draft.ID).Update("status", domain.StatusRejected).Error)

	f.clock.Advance(20 * time.Hour)
	fresh, err := f.svc.Get(staffCtx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, fresh.Status)
}

func TestAutoCloseNotEvaluatedByList(t *testing.T) {
	f := newFixture(t)
	staffCtx := f.ctx(f.staff)

	draft, err := f.svc.ResolveStaffDraft(staffCtx, f.customer.ID, false)
	require.NoError(t, err)

	when := f.clock.Now().Format(domain.EventDatetimeLayout)
	_, err = f.svc.Autosave(staffCtx, draft.ID, domain.AutosaveRequest{EventDatetime: &when})
	require.NoError(t, err)

	f.clock.Advance(17 * time.Hour)

	// The list renders the stored status; only opening the proposal
	// converges it.
	list, err := f.svc.List(staffCtx)
	require.NoError(t, err)
	require.Len(t, list.Active, 1)
	assert.Equal(t, domain.StatusDraft, list.Active[0].Status)

	opened, err := f.svc.Get(staffCtx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, opened.Status)
}

func TestSnapshotSurvivesTemplateEdit(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(f.customer)

	draft, err := f.svc.ResolveCustomerDraft(ctx)
	require.NoError(t, err)
	require.NotNil(t, draft.TemplateSnapshot)
	originalName := draft.TemplateSnapshot["name"]

	require.NoError(t, f.db.Model(&tpldomain.ProposalTemplate{}).
		Where("id = ?", draft.TemplateID).
		Updates(map[string]interface{}{"name": "Rebranded", "intro_title": "New pitch"}).Error)

	fresh, err := f.svc.Get(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, originalName, fresh.TemplateSnapshot["name"])
}

func TestAutosaveTemplateChangeRefreshesSnapshot(t *testing.T) {
	f := newFixture(t)
	staffCtx := f.ctx(f.staff)

	draft, err := f.svc.ResolveStaffDraft(staffCtx, f.customer.ID, false)
	require.NoError(t, err)

	var eventType tpldomain.EventType
	require.NoError(t, f.db.First(&eventType).Error)
	alternate := tpldomain.ProposalTemplate{
		ID:          f.genID.Generate(),
		EventTypeID: eventType.ID,
		Name:        "Premium",
		IntroTitle:  "Premium pitch",
	}
	require.NoError(t, f.db.Create(&alternate).Error)

	saved, err := f.svc.Autosave(staffCtx, draft.ID, domain.AutosaveRequest{TemplateID: &alternate.ID})
	require.NoError(t, err)
	assert.Equal(t, alternate.ID, saved.TemplateID)
	assert.Equal(t, "Premium", saved.TemplateSnapshot["name"])
}

func TestAutosaveWritesColumnsAndMeta(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(f.customer)

	draft, err := f.svc.ResolveCustomerDraft(ctx)
	require.NoError(t, err)

	title := "Wedding for alice"
	eventTitle := "Wedding"
	addr := "1 Garden Way"
	addrURL := "https://maps.example.com/1garden"
	drive := "https://drive.example.com/folder"
	desc := "Evening ceremony"
	when := "2026-06-20T18:30"

	saved, err := f.svc.Autosave(ctx, draft.ID, domain.AutosaveRequest{
		Title:            &title,
		EventTitle:       &eventTitle,
		EventAddress:     &addr,
		EventAddressURL:  &addrURL,
		DriveURL:         &drive,
		EventDescription: &desc,
		EventDatetime:    &when,
	})
	require.NoError(t, err)

	assert.Equal(t, title, saved.Title)
	assert.Equal(t, eventTitle, saved.EventTitle)
	assert.Equal(t, addr, saved.EventLocation)
	assert.Equal(t, drive, saved.DriveLink)
	require.NotNil(t, saved.EventDatetime)
	assert.Equal(t, when, saved.EventDatetime.Format(domain.EventDatetimeLayout))

	meta := domain.DecodeMeta(saved.Meta)
	assert.Equal(t, addrURL, meta.EventAddressURL)
	assert.Equal(t, when, meta.EventDatetime)
}

func TestCorruptMetaDegradesToEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(f.customer)

	draft, err := f.svc.ResolveCustomerDraft(ctx)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&domain.Proposal{}).
		Where("id = ?", draft.ID).
		Update("meta", datatypes.JSONMap{"event_title": 42, "garbage": []interface{}{1, 2}}).Error)

	title := "still works"
	saved, err := f.svc.Autosave(ctx, draft.ID, domain.AutosaveRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "still works", saved.Title)
	assert.Equal(t, "", domain.DecodeMeta(saved.Meta).EventTitle)
}

func TestPublicTokenLookup(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(f.customer)

	draft, err := f.svc.ResolveCustomerDraft(ctx)
	require.NoError(t, err)
	// 32 random bytes, base64url without padding.
	assert.Len(t, draft.PublicToken, 43)

	found, err := f.svc.GetByPublicToken(context.Background(), draft.PublicToken)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, found.ID)

	_, err = f.svc.GetByPublicToken(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccessIsolation(t *testing.T) {
	f := newFixture(t)
	stranger := f.createUser(t, "mallory", actorcontext.RoleCustomer)
	otherStaff := f.createUser(t, "manager2", actorcontext.RoleStaff)

	draft, err := f.svc.ResolveCustomerDraft(f.ctx(f.customer))
	require.NoError(t, err)

	_, err = f.svc.Get(f.ctx(stranger), draft.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.Get(f.ctx(otherStaff), draft.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListPartitionsByTab(t *testing.T) {
	f := newFixture(t)
	customerCtx := f.ctx(f.customer)
	staffCtx := f.ctx(f.staff)
	band := f.createService(t, "Band", 1000, true)

	// One staff draft, one incoming request, one sent.
	_, err := f.svc.ResolveStaffDraft(staffCtx, f.customer.ID, false)
	require.NoError(t, err)

	requested, err := f.svc.ResolveCustomerDraft(customerCtx)
	require.NoError(t, err)
	_, err = f.svc.AddItem(customerCtx, requested.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 1})
	require.NoError(t, err)
	_, err = f.svc.Submit(customerCtx, requested.ID)
	require.NoError(t, err)

	sent, err := f.svc.ResolveStaffDraft(staffCtx, f.customer.ID, true)
	require.NoError(t, err)
	_, err = f.svc.AddItem(staffCtx, sent.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 1})
	require.NoError(t, err)
	_, err = f.svc.Submit(staffCtx, sent.ID)
	require.NoError(t, err)

	list, err := f.svc.List(staffCtx)
	require.NoError(t, err)
	assert.Len(t, list.Active, 1)
	assert.Len(t, list.Requests, 1)
	assert.Len(t, list.History, 1)
	assert.Equal(t, requested.ID, list.Requests[0].ID)
	assert.Equal(t, sent.ID, list.History[0].ID)

	// The customer sees every proposal they are the customer of record on,
	// including the staff-owned ones.
	customerList, err := f.svc.List(customerCtx)
	require.NoError(t, err)
	assert.Len(t, customerList.Active, 3)
}

func TestAssigneeLowestID(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "manager2", actorcontext.RoleStaff)
	ctx := f.ctx(f.customer)
	band := f.createService(t, "Band", 1000, true)

	draft, err := f.svc.ResolveCustomerDraft(ctx)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, draft.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 1})
	require.NoError(t, err)

	submitted, err := f.svc.Submit(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, f.staff.ID, submitted.OwnerID)
}

func TestUploadPhoto(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(f.customer)

	draft, err := f.svc.ResolveCustomerDraft(ctx)
	require.NoError(t, err)

	saved, err := f.svc.UploadPhoto(ctx, draft.ID, "media/proposals/cover.jpg")
	require.NoError(t, err)
	assert.Equal(t, "media/proposals/cover.jpg", saved.PhotoPath)

	_, err = f.svc.UploadPhoto(ctx, draft.ID, "  ")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAuditTrailOnTransitions(t *testing.T) {
	f := newFixture(t)
	customerCtx := f.ctx(f.customer)
	band := f.createService(t, "Band", 1000, true)

	draft, err := f.svc.ResolveCustomerDraft(customerCtx)
	require.NoError(t, err)
	_, err = f.svc.AddItem(customerCtx, draft.ID, domain.AddItemRequest{ServiceID: band.ID, Qty: 1})
	require.NoError(t, err)
	_, err = f.svc.Submit(customerCtx, draft.ID)
	require.NoError(t, err)

	var rows []auditdomain.AuditLog
	require.NoError(t, f.db.Where("target_id = ?", draft.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "proposal.requested", rows[0].Action)
}
