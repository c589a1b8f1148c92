package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ontoschema/pkg/models"
	"github.com/ekaya-inc/ontoschema/pkg/services"
)

func newStagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "Print the resolved stage execution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := services.NewPipelineService(cfg.Stages, logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, d := range pipeline.Plan() {
				fmt.Fprintf(out, "%2d  %-30s %-10s %s\n", i+1, d.ID, kindList(d.Kinds), stageList(d.Dependencies))
			}
			return nil
		},
	}
}

func kindList(kinds []models.ModelKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ",")
}

func stageList(ids []models.StageID) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}
