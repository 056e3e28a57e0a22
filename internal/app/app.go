// Package app wires repositories and services over an open database.
package app

import (
	"context"
	"fmt"

	"learnsprout/internal/config"
	"learnsprout/internal/database"
	"learnsprout/internal/events"
	"learnsprout/internal/logger"
	"learnsprout/internal/mailer"
	"learnsprout/internal/repository"
	"learnsprout/internal/service"
)

// Repositories holds every repository bound to one database
type Repositories struct {
	Users        *repository.UserRepository
	Families     *repository.FamilyRepository
	Invitations  *repository.InvitationRepository
	Children     *repository.ChildRepository
	Institutions *repository.InstitutionRepository
	Skills       *repository.SkillRepository
	Activities   *repository.ActivityRepository
	Materials    *repository.MaterialRepository
	Plans        *repository.PlanRepository
	Progress     *repository.ProgressRepository
}

// NewRepositories binds the repositories to db
func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Users:        repository.NewUserRepository(db),
		Families:     repository.NewFamilyRepository(db),
		Invitations:  repository.NewInvitationRepository(db),
		Children:     repository.NewChildRepository(db),
		Institutions: repository.NewInstitutionRepository(db),
		Skills:       repository.NewSkillRepository(db),
		Activities:   repository.NewActivityRepository(db),
		Materials:    repository.NewMaterialRepository(db),
		Plans:        repository.NewPlanRepository(db),
		Progress:     repository.NewProgressRepository(db),
	}
}

// Services is the fully wired service layer
type Services struct {
	Repos        *Repositories
	Auth         *service.AuthService
	Email        *service.EmailService
	Children     *service.ChildService
	Assessments  *service.AssessmentService
	Plans        *service.PlanService
	Progress     *service.ProgressService
	Materials    *service.MaterialService
	Family       *service.FamilyService
	Institutions *service.InstitutionService
	Catalog      *service.CatalogService
	Digest       *service.DigestService
	Backup       *service.BackupService
}

// NewServices builds the service layer. bus receives plan and observation events.
func NewServices(cfg *config.Config, db *database.DB, sender mailer.Sender, bus events.Bus, log *logger.Logger) *Services {
	repos := NewRepositories(db)
	email := service.NewEmailService(sender, cfg.AppBaseURL, cfg.EmailDebug, log)
	children := service.NewChildService(repos.Children, repos.Institutions, log)

	return &Services{
		Repos:       repos,
		Auth:        service.NewAuthService(repos.Users, repos.Families, repos.Invitations, cfg.SessionDuration, log),
		Email:       email,
		Children:    children,
		Assessments: service.NewAssessmentService(db, repos.Skills, repos.Children, children, log),
		Plans: service.NewPlanService(repos.Plans, repos.Skills, repos.Activities, repos.Progress,
			repos.Children, repos.Users, children, bus, log),
		Progress:     service.NewProgressService(db, repos.Progress, repos.Skills, repos.Plans, children, bus, log),
		Materials:    service.NewMaterialService(repos.Materials, repos.Activities, repos.Plans, children, cfg.ForecastDays, log),
		Family:       service.NewFamilyService(repos.Families, repos.Users, repos.Invitations, email, log),
		Institutions: service.NewInstitutionService(repos.Institutions, children, log),
		Catalog:      service.NewCatalogService(repos.Skills, repos.Activities, repos.Materials, log),
		Digest:       service.NewDigestService(repos.Users, repos.Children, repos.Plans, repos.Activities, email, log),
		Backup:       service.NewBackupService(db, log),
	}
}

// OpenDatabase connects using cfg and applies pending migrations
func OpenDatabase(cfg *config.Config, log *logger.Logger) (*database.DB, error) {
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	log.Info("database connection established", "type", cfg.DatabaseType)

	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("migrations completed")
	return db, nil
}

// NewBus returns a Redis bus when REDIS_ADDR is set, otherwise an in-process one
func NewBus(ctx context.Context, cfg *config.Config, log *logger.Logger) (events.Bus, error) {
	if cfg.RedisAddr == "" {
		return events.NewMemoryBus(log, 0), nil
	}
	bus, err := events.NewRedisBus(ctx, cfg.RedisAddr, cfg.RedisChannel, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect event bus: %w", err)
	}
	log.Info("redis event bus connected", "addr", cfg.RedisAddr, "channel", cfg.RedisChannel)
	return bus, nil
}
