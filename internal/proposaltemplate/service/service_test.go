package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/propoza/internal/clock"
	"github.com/smallbiznis/propoza/internal/proposaltemplate/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc   domain.TemplateService
	db    *gorm.DB
	clock *clock.FakeClock
	genID *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "template_test.db")
	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&domain.EventType{}, &domain.ProposalTemplate{}))

	genID, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))

	svc := NewService(Params{DB: gdb, Log: zap.NewNop(), GenID: genID, Clock: fake})
	return &fixture{svc: svc, db: gdb, clock: fake, genID: genID}
}

func newService(t *testing.T) domain.TemplateService {
	t.Helper()
	return newFixture(t).svc
}

func TestGetDefaultBootstraps(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	tpl, err := svc.GetDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Basic", tpl.Name)
	assert.True(t, tpl.ShowCover)

	types, err := svc.ListEventTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "General", types[0].Name)

	// A second call finds the bootstrapped row instead of creating more.
	again, err := svc.GetDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, tpl.ID, again.ID)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetDefaultReusesExistingEventType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// An event type left behind without any template must not wedge the
	// bootstrap on its unique name.
	now := f.clock.Now()
	orphan := domain.EventType{
		ID:        f.genID.Generate(),
		Name:      "General",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.db.Create(&orphan).Error)

	tpl, err := f.svc.GetDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Basic", tpl.Name)
	assert.Equal(t, orphan.ID, tpl.EventTypeID)

	types, err := f.svc.ListEventTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 1)
}

func TestGetDefaultUsesInjectedClock(t *testing.T) {
	f := newFixture(t)

	tpl, err := f.svc.GetDefault(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), tpl.CreatedAt)
	assert.Equal(t, f.clock.Now(), tpl.UpdatedAt)
}

func TestCreateRequiresName(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	tpl, err := svc.GetDefault(ctx)
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateTemplateRequest{
		EventTypeID: tpl.EventTypeID,
		Name:        "   ",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestDuplicateTemplateName(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	tpl, err := svc.GetDefault(ctx)
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateTemplateRequest{
		EventTypeID: tpl.EventTypeID,
		Name:        "Basic",
	})
	assert.ErrorIs(t, err, domain.ErrTemplateExists)
}

func TestUpdateTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tpl, err := f.svc.GetDefault(ctx)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	name := "Spring"
	primary := "#FF0000"
	updated, err := f.svc.Update(ctx, tpl.ID, domain.UpdateTemplateRequest{
		Name:         &name,
		PrimaryColor: &primary,
	})
	require.NoError(t, err)
	assert.Equal(t, "Spring", updated.Name)
	assert.Equal(t, "#FF0000", updated.PrimaryColor)
	assert.Equal(t, f.clock.Now(), updated.UpdatedAt)

	got, err := f.svc.Get(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Spring", got.Name)
}

func TestGetMissingTemplate(t *testing.T) {
	svc := newService(t)

	_, err := svc.Get(context.Background(), snowflake.ID(999))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
