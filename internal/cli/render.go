package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/optprep/casebot/internal/render"
)

// newRenderCmd batch-renders case sheets outside a running bot, useful for
// proofreading a case bank before it goes live.
func newRenderCmd() *cobra.Command {
	var (
		casesPath string
		outDir    string
		answers   bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render PDF case sheets from a case file or directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), casesPath, outDir, answers)
		},
	}

	cmd.Flags().StringVar(&casesPath, "cases", "", "case JSON file or directory (required)")
	cmd.Flags().StringVar(&outDir, "out", "documents", "output directory for PDFs")
	cmd.Flags().BoolVar(&answers, "answers", false, "also render answer keys")
	_ = cmd.MarkFlagRequired("cases")
	return cmd
}

func runRender(ctx context.Context, casesPath, outDir string, answers bool) error {
	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	source, err := openCaseStore(casesPath, log)
	if err != nil {
		return fmt.Errorf("open case store: %w", err)
	}

	renderer, err := render.NewPDFRenderer(outDir)
	if err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}

	ids, err := source.ListIDs(ctx)
	if err != nil {
		return err
	}

	for _, id := range ids {
		c, err := source.Get(ctx, id)
		if err != nil {
			return err
		}

		path, err := renderer.RenderCase(c)
		if err != nil {
			return fmt.Errorf("render %s: %w", id, err)
		}
		fmt.Println(path)

		if answers {
			path, err := renderer.RenderAnswers(c)
			if err != nil {
				return fmt.Errorf("render answers for %s: %w", id, err)
			}
			fmt.Println(path)
		}
	}
	return nil
}
