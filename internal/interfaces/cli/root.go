// Package cli comandos de mantenimiento de rutctl: migraciones, catálogo de planes y sincronización
// de slots fuera de la API.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/rutslots-api/internal/bootstrap"
	"github.com/jhoicas/rutslots-api/pkg/config"
	"github.com/jhoicas/rutslots-api/pkg/logger"
)

// Options puntos de inyección de la CLI; los campos nil usan los valores de producción.
type Options struct {
	LoadConfig func() (*config.Config, error)
	Open       func(ctx context.Context, cfg *config.Config) (*bootstrap.Backend, error)
	Out        io.Writer
}

// env dependencias abiertas para un comando.
type env struct {
	cfg     *config.Config
	log     *logger.Logger
	backend *bootstrap.Backend
	svc     *bootstrap.Services
	out     io.Writer
}

func (e *env) printf(format string, args ...any) {
	fmt.Fprintf(e.out, format, args...)
}

// NewRootCommand construye rutctl con todos sus subcomandos.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.Load
	}
	if opts.Open == nil {
		opts.Open = bootstrap.Open
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	root := &cobra.Command{
		Use:          "rutctl",
		Short:        "Herramientas de mantenimiento de slots de RUT",
		Long:         `rutctl aplica migraciones, carga el catálogo de planes y resincroniza los slots de RUT con el cupo de cada plan.`,
		SilenceUsage: true,
	}
	root.SetOut(opts.Out)

	root.AddCommand(
		newMigrateCommand(opts),
		newSeedPlansCommand(opts),
		newNormalizeSlotsCommand(opts),
		newReconcileCommand(opts),
		newReconcileAllCommand(opts),
		newActivateCommand(opts),
	)
	return root
}

// withEnv carga config, logger y backend, ejecuta fn y libera el backend.
func withEnv(ctx context.Context, opts Options, fn func(e *env) error) error {
	cfg, err := opts.LoadConfig()
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, Out: os.Stderr})
	backend, err := opts.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("abrir almacenamiento: %w", err)
	}
	defer backend.Close()
	return fn(&env{
		cfg:     cfg,
		log:     log.Component("rutctl"),
		backend: backend,
		svc:     bootstrap.NewServices(backend, cfg, log),
		out:     opts.Out,
	})
}
