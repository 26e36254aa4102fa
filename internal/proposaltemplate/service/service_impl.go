package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propoza/internal/clock"
	"github.com/smallbiznis/propoza/internal/proposaltemplate/domain"
	"github.com/smallbiznis/propoza/pkg/db"
	"github.com/smallbiznis/propoza/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	templates  repository.Repository[domain.ProposalTemplate]
	eventTypes repository.Repository[domain.EventType]
}

func NewService(p Params) domain.TemplateService {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("proposaltemplate.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		templates:  repository.ProvideStore[domain.ProposalTemplate](p.DB),
		eventTypes: repository.ProvideStore[domain.EventType](p.DB),
	}
}

func (s *Service) GetDefault(ctx context.Context) (domain.ProposalTemplate, error) {
	tpl, err := s.resolveDefault(ctx)
	if err == nil || !db.IsDuplicateKeyErr(err) {
		return tpl, err
	}
	// Lost the race to another bootstrapper. The failed insert aborted the
	// whole postgres transaction, so re-read in a fresh one where the
	// winner's rows are visible.
	return s.resolveDefault(ctx)
}

func (s *Service) resolveDefault(ctx context.Context) (domain.ProposalTemplate, error) {
	var tpl domain.ProposalTemplate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.findDefault(tx)
		if err != nil {
			return err
		}
		if found != nil {
			tpl = *found
			return nil
		}

		bootstrapped, err := s.bootstrap(tx)
		if err != nil {
			return err
		}
		tpl = bootstrapped
		return nil
	})
	return tpl, err
}

// findDefault prefers the freshest template of an active event type, then
// the freshest template of any event type.
func (s *Service) findDefault(tx *gorm.DB) (*domain.ProposalTemplate, error) {
	var tpl domain.ProposalTemplate
	err := db.LockForUpdate(tx).
		Joins("JOIN event_types ON event_types.id = proposal_templates.event_type_id").
		Where("event_types.is_active = ?", true).
		Order("proposal_templates.updated_at DESC").
		First(&tpl).Error
	if err == nil {
		return &tpl, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = db.LockForUpdate(tx).
		Order("updated_at DESC").
		First(&tpl).Error
	if err == nil {
		return &tpl, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return nil, nil
}

func (s *Service) bootstrap(tx *gorm.DB) (domain.ProposalTemplate, error) {
	now := s.clock.Now()

	// An event type may already exist without any template, so reuse it
	// instead of tripping the unique name index every time.
	var eventType domain.EventType
	err := tx.Where("name = ?", "General").First(&eventType).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		eventType = domain.EventType{
			ID:        s.genID.Generate(),
			Name:      "General",
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = tx.Create(&eventType).Error
	}
	if err != nil {
		return domain.ProposalTemplate{}, err
	}

	tpl := domain.ProposalTemplate{
		ID:             s.genID.Generate(),
		EventTypeID:    eventType.ID,
		Name:           "Basic",
		ShowCover:      true,
		ShowIntro:      true,
		ShowGift:       true,
		ShowFooter:     true,
		IntroTitle:     "About our services",
		GiftText:       "{client_name}, claim your personal gift!",
		GiftButtonText: "Claim gift",
		FooterText:     "Thank you for your trust. Questions? Message us anytime.",
		PrimaryColor:   "#6D28D9",
		SecondaryColor: "#1E3A8A",
		FontFamily:     "Inter",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := tx.Create(&tpl).Error; err != nil {
		return domain.ProposalTemplate{}, err
	}

	s.log.Info("bootstrapped default template",
		zap.String("event_type_id", eventType.ID.String()),
		zap.String("template_id", tpl.ID.String()),
	)
	return tpl, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.ProposalTemplate, error) {
	tpl, err := s.templates.FindOne(ctx, &domain.ProposalTemplate{ID: id})
	if err != nil {
		return domain.ProposalTemplate{}, err
	}
	if tpl == nil {
		return domain.ProposalTemplate{}, domain.ErrNotFound
	}
	return *tpl, nil
}

func (s *Service) List(ctx context.Context) ([]domain.ProposalTemplate, error) {
	var templates []domain.ProposalTemplate
	err := s.db.WithContext(ctx).
		Order("updated_at DESC").
		Find(&templates).Error
	return templates, err
}

func (s *Service) ListEventTypes(ctx context.Context) ([]domain.EventType, error) {
	var eventTypes []domain.EventType
	err := s.db.WithContext(ctx).
		Order("name ASC").
		Find(&eventTypes).Error
	return eventTypes, err
}

func (s *Service) Create(ctx context.Context, req domain.CreateTemplateRequest) (domain.ProposalTemplate, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.ProposalTemplate{}, domain.ErrInvalidName
	}

	eventType, err := s.eventTypes.FindOne(ctx, &domain.EventType{ID: req.EventTypeID})
	if err != nil {
		return domain.ProposalTemplate{}, err
	}
	if eventType == nil {
		return domain.ProposalTemplate{}, domain.ErrNotFound
	}

	now := s.clock.Now()
	tpl := domain.ProposalTemplate{
		ID:              s.genID.Generate(),
		EventTypeID:     req.EventTypeID,
		Name:            name,
		ShowCover:       boolOr(req.ShowCover, true),
		ShowIntro:       boolOr(req.ShowIntro, true),
		ShowGift:        boolOr(req.ShowGift, true),
		ShowFooter:      boolOr(req.ShowFooter, true),
		IntroTitle:      req.IntroTitle,
		IntroSubtitle:   req.IntroSubtitle,
		GiftText:        req.GiftText,
		GiftButtonText:  req.GiftButtonText,
		GiftButtonURL:   req.GiftButtonURL,
		FooterText:      req.FooterText,
		FooterCopyright: req.FooterCopyright,
		PrimaryColor:    req.PrimaryColor,
		SecondaryColor:  req.SecondaryColor,
		FontFamily:      req.FontFamily,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.templates.Create(ctx, &tpl); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ProposalTemplate{}, domain.ErrTemplateExists
		}
		return domain.ProposalTemplate{}, err
	}
	return tpl, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateTemplateRequest) (domain.ProposalTemplate, error) {
	tpl, err := s.templates.FindOne(ctx, &domain.ProposalTemplate{ID: id})
	if err != nil {
		return domain.ProposalTemplate{}, err
	}
	if tpl == nil {
		return domain.ProposalTemplate{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.ProposalTemplate{}, domain.ErrInvalidName
		}
		tpl.Name = name
	}
	if req.ShowCover != nil {
		tpl.ShowCover = *req.ShowCover
	}
	if req.ShowIntro != nil {
		tpl.ShowIntro = *req.ShowIntro
	}
	if req.ShowGift != nil {
		tpl.ShowGift = *req.ShowGift
	}
	if req.ShowFooter != nil {
		tpl.ShowFooter = *req.ShowFooter
	}
	if req.IntroTitle != nil {
		tpl.IntroTitle = *req.IntroTitle
	}
	if req.IntroSubtitle != nil {
		tpl.IntroSubtitle = *req.IntroSubtitle
	}
	if req.GiftText != nil {
		tpl.GiftText = *req.GiftText
	}
	if req.GiftButtonText != nil {
		tpl.GiftButtonText = *req.GiftButtonText
	}
	if req.GiftButtonURL != nil {
		tpl.GiftButtonURL = *req.GiftButtonURL
	}
	if req.FooterText != nil {
		tpl.FooterText = *req.FooterText
	}
	if req.FooterCopyright != nil {
		tpl.FooterCopyright = *req.FooterCopyright
	}
	if req.PrimaryColor != nil {
		tpl.PrimaryColor = *req.PrimaryColor
	}
	if req.SecondaryColor != nil {
		tpl.SecondaryColor = *req.SecondaryColor
	}
	if req.FontFamily != nil {
		tpl.FontFamily = *req.FontFamily
	}
	tpl.UpdatedAt = s.clock.Now()

	if err := s.db.WithContext(ctx).Save(tpl).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ProposalTemplate{}, domain.ErrTemplateExists
		}
		return domain.ProposalTemplate{}, err
	}
	return *tpl, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
