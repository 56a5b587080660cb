package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/rutslots-api/internal/application/quota"
	"github.com/jhoicas/rutslots-api/internal/application/subscription"
	"github.com/jhoicas/rutslots-api/internal/bootstrap"
)

func newSeedPlansCommand(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-plans",
		Short: "Crear o corregir el catálogo de planes por defecto",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd.Context(), opts, func(e *env) error {
				created, err := bootstrap.SeedPlans(cmd.Context(), e.backend.Plans, e.cfg.Slots.MaxQuota)
				if err != nil {
					return err
				}
				e.log.Info().Int("created", created).Msg("catálogo de planes cargado")
				e.printf("planes creados: %d, actualizados: %d\n", created, len(bootstrap.DefaultPlans())-created)
				return nil
			})
		},
	}
}

func newNormalizeSlotsCommand(opts Options) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "normalize-slots",
		Short: "Recalcular el estado de slots heredados",
		Long:  `Marca como locked los slots con datos de bloqueo y como available o empty el resto según tengan RUT.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd.Context(), opts, func(e *env) error {
				var (
					fixed int
					err   error
				)
				if userID != "" {
					fixed, err = e.svc.Slots.NormalizeStates(cmd.Context(), userID)
				} else {
					fixed, err = e.svc.Slots.NormalizeAll(cmd.Context())
				}
				e.printf("slots corregidos: %d\n", fixed)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "solo este usuario")
	return cmd
}

func newReconcileCommand(opts Options) *cobra.Command {
	var (
		userID   string
		newQuota int
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Ajustar los slots de un usuario a un cupo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return fmt.Errorf("--user es obligatorio")
			}
			return withEnv(cmd.Context(), opts, func(e *env) error {
				policy := quota.RetryPolicy{
					MaxRetries:      e.cfg.Reconcile.MaxRetries,
					InitialInterval: e.cfg.Reconcile.Backoff,
					MaxInterval:     e.cfg.Reconcile.MaxBackoff,
				}
				var res quota.Result
				err := quota.RetryOnConflict(cmd.Context(), policy, func(ctx context.Context) error {
					var err error
					res, err = e.svc.Reconciler.Reconcile(ctx, userID, newQuota)
					return err
				})
				if err != nil {
					return err
				}
				e.printf("creados: %d, eliminados: %d, desbloqueados: %d\n", res.Created, res.Removed, res.Unlocked)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "usuario a sincronizar")
	cmd.Flags().IntVarP(&newQuota, "quota", "q", 0, "cupo objetivo")
	_ = cmd.MarkFlagRequired("quota")
	return cmd
}

func newReconcileAllCommand(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile-all",
		Short: "Resincronizar a todos los usuarios suscritos con el cupo de su plan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd.Context(), opts, func(e *env) error {
				n, err := e.svc.Subscriptions.ResyncAll(cmd.Context())
				e.printf("usuarios sincronizados: %d\n", n)
				if err != nil {
					e.log.Error().Err(err).Msg("resincronización con errores")
				}
				return err
			})
		},
	}
}

// newActivateCommand corrección manual de plan (pagos conciliados fuera del webhook).
func newActivateCommand(opts Options) *cobra.Command {
	var userID, planCode, notes string
	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Activar un plan para un usuario y sincronizar sus slots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" || planCode == "" {
				return fmt.Errorf("--user y --plan son obligatorios")
			}
			return withEnv(cmd.Context(), opts, func(e *env) error {
				act, err := e.svc.Subscriptions.ActivatePlan(cmd.Context(), subscription.ActivateInput{
					UserID:   userID,
					PlanCode: planCode,
					Source:   subscription.SourceCLI,
					Notes:    notes,
				})
				if err != nil {
					return err
				}
				if act.NoOp {
					e.printf("plan %s ya estaba activo\n", act.Plan.Code)
					return nil
				}
				e.printf("plan %s activado; creados: %d, eliminados: %d, desbloqueados: %d\n",
					act.Plan.Code, act.Sync.Created, act.Sync.Removed, act.Sync.Unlocked)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "usuario")
	cmd.Flags().StringVarP(&planCode, "plan", "p", "", "código del plan")
	cmd.Flags().StringVar(&notes, "notes", "", "nota para el historial")
	return cmd
}
