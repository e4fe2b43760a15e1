package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"hospital-service/internal/clock"
	"hospital-service/internal/models"
	"hospital-service/internal/service"
	"hospital-service/internal/storage/postgres"
	"hospital-service/pkg/sl"
)

const cliTimeout = 30 * time.Second

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := bootstrap()

			storage, err := postgres.New(cfg.StoragePath)
			if err != nil {
				return err
			}
			defer storage.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
			defer cancel()

			n, err := storage.Migrate(ctx)
			if err != nil {
				log.Error("Migration failed", sl.Err(err))
				return err
			}

			log.Info("Migrations applied", slog.Int("count", n))
			return nil
		},
	}
}

func setDoctorPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-doctor-password <doctorId> <password>",
		Short: "Set the sign-in password of a doctor by their DOC code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCLIService(cmd.Context(), func(ctx context.Context, log *slog.Logger, svc *service.Service) error {
				if err := svc.SetDoctorPassword(ctx, args[0], args[1]); err != nil {
					return err
				}
				log.Info("Doctor password updated", slog.String("doctor_id", args[0]))
				return nil
			})
		},
	}
}

func createAdminCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create-admin <email> <password>",
		Short: "Create an administrator account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCLIService(cmd.Context(), func(ctx context.Context, log *slog.Logger, svc *service.Service) error {
				uid, err := svc.CreateAdmin(ctx, args[0], args[1], name)
				if err != nil {
					return err
				}
				log.Info("Administrator created", slog.String("uid", uid), slog.String("email", args[0]))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")

	return cmd
}

// withCLIService runs fn against a service backed only by Postgres.
func withCLIService(parent context.Context, fn func(ctx context.Context, log *slog.Logger, svc *service.Service) error) error {
	cfg, log := bootstrap()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	models.SetDateLocation(loc)

	storage, err := postgres.New(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("connect storage: %w", err)
	}
	defer storage.Close()

	svc := service.NewService(log, service.Deps{
		Store: storage,
		Clock: clock.New(loc),
	}, service.Options{})

	ctx, cancel := context.WithTimeout(parent, cliTimeout)
	defer cancel()

	if err := fn(ctx, log, svc); err != nil {
		log.Error("Command failed", sl.Err(err))
		return err
	}

	return nil
}
