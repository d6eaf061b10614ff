package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/askai-go/internal/app"
	"github.com/doeshing/askai-go/internal/domain"
)

func newBatchCommand(container *app.Container) *cobra.Command {
	var (
		req         domain.BatchRequest
		projectType string
		noCache     bool
	)
	cmd := &cobra.Command{
		Use:   "batch [query]",
		Short: "Run one request in every project under a directory",
		Example: `  askai batch --root ~/src "update dependencies"
  askai batch --project-type rust --max-parallel 2 --dry-run "run the tests"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Prompt = strings.Join(args, " ")
			req.UseCache = !noCache
			if projectType != "" {
				kind, ok := domain.ParseProjectKind(projectType)
				if !ok {
					return fmt.Errorf("unknown project type %q", projectType)
				}
				req.Kind = kind
			}

			out := cmd.OutOrStdout()
			svc := container.BatchService(NewPrompter(nil, nil))
			svc.OnPlan = func(targets []domain.BatchTarget) { RenderBatchPlan(out, targets) }
			svc.OnResult = func(result domain.BatchResult) { RenderBatchResult(out, result) }

			summary, err := svc.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			if summary.Total == 0 {
				fmt.Fprintln(out, "No projects found.")
				return nil
			}
			RenderBatchSummary(out, summary)
			if summary.Failed > 0 {
				return &ExitError{Code: 1}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Root, "root", ".", "Directory to scan for projects")
	f.IntVarP(&req.MaxParallel, "max-parallel", "j", 0, "Commands running at once (default from config)")
	f.IntVar(&req.MaxDepth, "depth", 0, "Maximum scan depth (default from config)")
	f.StringVar(&projectType, "project-type", "", "Only projects of this kind (git, rust, nodejs, python, go, java)")
	f.StringVarP(&req.Provider, "provider", "p", "", "Provider to use")
	f.BoolVar(&noCache, "no-cache", false, "Bypass the response cache lookup")
	f.BoolVar(&req.DryRun, "dry-run", false, "Generate and list commands without running them")
	f.BoolVarP(&req.AutoApprove, "yes", "y", false, "Run without asking")
	return cmd
}
