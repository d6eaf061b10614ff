package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/doeshing/askai-go/internal/app"
)

func newDoctorCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose providers, daemon, cache and history",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := container.DoctorService().Run(cmd.Context())
			RenderDoctorReport(cmd.OutOrStdout(), report)
			if !report.Healthy() {
				return errors.New("doctor found problems")
			}
			return nil
		},
	}
}
