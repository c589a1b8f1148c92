package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/render"
)

func newGenerateCmd() *cobra.Command {
	var (
		ontologyFile string
		conceptsFile string
		outputDir    string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the pipeline and write every configured output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ontologyFile != "" {
				cfg.Ontology.File = ontologyFile
			}
			if conceptsFile != "" {
				cfg.Ontology.ConceptsFile = conceptsFile
			}
			if outputDir != "" {
				cfg.Output.Dir = outputDir
			}

			ws, err := compile(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			// Nothing is written unless every renderer succeeds.
			outputs, err := render.RenderAll(ws, render.NewRenderers(cfg.Output, logger), cfg.Output)
			if err != nil {
				return err
			}
			if err := render.WriteAll(outputs, logger); err != nil {
				return err
			}

			logger.Info("Generation complete",
				zap.String("run_id", ws.RunID.String()),
				zap.Int("classes", len(ws.ClassModel.All())),
				zap.Int("tables", len(ws.Schema.Tables)),
				zap.Int("outputs", len(outputs)),
				zap.Int("warnings", len(ws.Warnings)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&ontologyFile, "ontology", "o", "", "ontology N-Triples file (overrides ontology.file)")
	cmd.Flags().StringVar(&conceptsFile, "concepts", "", "concept scheme N-Triples file (overrides ontology.concepts_file)")
	cmd.Flags().StringVar(&outputDir, "out", "", "output directory (overrides output.dir)")
	return cmd
}
