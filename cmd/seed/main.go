package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/angelmondragon/quartermaster-backend/internal/catalog"
	"github.com/angelmondragon/quartermaster-backend/internal/deficiencies"
	"github.com/angelmondragon/quartermaster-backend/internal/ordering"
	"github.com/angelmondragon/quartermaster-backend/pkg/auth"
	"github.com/angelmondragon/quartermaster-backend/pkg/config"
	"github.com/angelmondragon/quartermaster-backend/pkg/db"
	"github.com/angelmondragon/quartermaster-backend/pkg/db/models"
	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
	"github.com/angelmondragon/quartermaster-backend/pkg/instance"
	"github.com/angelmondragon/quartermaster-backend/pkg/logger"
	"github.com/angelmondragon/quartermaster-backend/pkg/migrate"
)

func main() {
	tenantName := flag.String("tenant-name", "", "association to seed; created when missing")
	file := flag.String("file", "", "taxonomy yaml file")
	printToken := flag.Bool("print-token", false, "print an admin access token for the tenant")
	flag.Parse()

	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	if strings.TrimSpace(*tenantName) == "" {
		fmt.Fprintln(os.Stderr, "missing -tenant-name")
		os.Exit(1)
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Env:         cfg.App.Env,
		Instance:    instance.GetID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	requireResource(ctx, logg, "migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	tenant, err := findOrCreateTenant(ctx, dbClient.DB(), strings.TrimSpace(*tenantName))
	requireResource(ctx, logg, "tenant", err)

	ctx = logg.WithFields(ctx, map[string]any{
		"tenant_id": tenant.ID.String(),
		"tenant":    tenant.Name,
	})

	actor := auth.Actor{UserID: uuid.New(), TenantID: tenant.ID, Role: enums.UserRoleAdmin}

	if *file != "" {
		f, err := os.Open(*file)
		requireResource(ctx, logg, "taxonomy file", err)
		taxonomy, err := catalog.LoadTaxonomy(f)
		_ = f.Close()
		requireResource(ctx, logg, "taxonomy", err)

		seeder, err := catalog.NewSeeder(dbClient, ordering.NewManager(nil), deficiencies.NewRepository(dbClient.DB()))
		requireResource(ctx, logg, "seeder", err)

		result, err := seeder.Apply(ctx, actor, taxonomy)
		requireResource(ctx, logg, "seed", err)

		logg.Info(logg.WithFields(ctx, map[string]any{
			"sizes":            result.Sizes,
			"uniform_types":    result.UniformTypes,
			"generations":      result.Generations,
			"material_groups":  result.MaterialGroups,
			"materials":        result.Materials,
			"deficiency_types": result.DeficiencyTypes,
		}), "taxonomy seeded")
	}

	fmt.Println("tenant_id:", tenant.ID)
	if *printToken {
		token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{
			UserID:   actor.UserID,
			TenantID: actor.TenantID,
			Role:     actor.Role,
			JTI:      uuid.NewString(),
		})
		requireResource(ctx, logg, "token", err)
		fmt.Println("admin_token:", token)
	}
}

func findOrCreateTenant(ctx context.Context, conn *gorm.DB, name string) (models.Tenant, error) {
	var tenant models.Tenant
	err := conn.WithContext(ctx).Where("name = ?", name).Take(&tenant).Error
	if err == nil {
		return tenant, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Tenant{}, fmt.Errorf("load tenant: %w", err)
	}
	tenant = models.Tenant{ID: uuid.New(), Name: name}
	if err := conn.WithContext(ctx).Create(&tenant).Error; err != nil {
		return models.Tenant{}, fmt.Errorf("create tenant: %w", err)
	}
	return tenant, nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
