package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/rutslots-api/internal/infrastructure/postgres"
)

func newMigrateCommand(opts Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migraciones de base de datos",
		Long:  `Aplica, revierte o muestra el estado de las migraciones embebidas (requiere STORAGE_DRIVER=postgres).`,
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Revertir migraciones",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, opts, func(e *env, m *postgres.Migrator) error {
				e.log.Info().Int("steps", steps).Msg("revirtiendo migraciones")
				if err := m.Down(cmd.Context(), steps); err != nil {
					return err
				}
				return printVersion(cmd, e, m)
			})
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "cantidad de migraciones a revertir")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Aplicar migraciones pendientes",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, opts, func(e *env, m *postgres.Migrator) error {
					e.log.Info().Msg("aplicando migraciones")
					if err := m.Up(cmd.Context()); err != nil {
						return err
					}
					return printVersion(cmd, e, m)
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Estado de las migraciones",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, opts, func(e *env, m *postgres.Migrator) error {
					if err := printVersion(cmd, e, m); err != nil {
						return err
					}
					return m.Status(cmd.Context())
				})
			},
		},
	)
	return cmd
}

func withMigrator(cmd *cobra.Command, opts Options, fn func(e *env, m *postgres.Migrator) error) error {
	return withEnv(cmd.Context(), opts, func(e *env) error {
		if e.backend.Pool == nil {
			return fmt.Errorf("migrate requiere STORAGE_DRIVER=postgres (actual: %s)", e.backend.Driver)
		}
		m, err := postgres.NewMigrator(e.backend.Pool)
		if err != nil {
			return err
		}
		defer m.Close()
		return fn(e, m)
	})
}

func printVersion(cmd *cobra.Command, e *env, m *postgres.Migrator) error {
	v, err := m.Version(cmd.Context())
	if err != nil {
		return err
	}
	e.printf("versión de esquema: %d\n", v)
	return nil
}
