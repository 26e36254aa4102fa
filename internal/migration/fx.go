package migration

import (
	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/propoza/internal/account/domain"
	auditdomain "github.com/smallbiznis/propoza/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/propoza/internal/catalog/domain"
	"github.com/smallbiznis/propoza/internal/config"
	proposaldomain "github.com/smallbiznis/propoza/internal/proposal/domain"
	tpldomain "github.com/smallbiznis/propoza/internal/proposaltemplate/domain"
	"github.com/smallbiznis/propoza/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node, log *zap.Logger) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite is the zero-setup path, schema comes from the models.
			if err := conn.AutoMigrate(
				&accountdomain.User{},
				&catalogdomain.Category{},
				&catalogdomain.Service{},
				&tpldomain.EventType{},
				&tpldomain.ProposalTemplate{},
				&proposaldomain.Proposal{},
				&proposaldomain.ProposalItem{},
				&auditdomain.AuditLog{},
			); err != nil {
				return err
			}
		}

		if err := seed.EnsureDefaultStaff(conn, genID, log); err != nil {
			return err
		}
		return seed.EnsureDemoCatalog(conn, genID)
	}),
)
