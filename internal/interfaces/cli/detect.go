package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scenedex/scenedex/internal/detect"
)

// detectReport is the JSON shape emitted by the detect command.
type detectReport struct {
	File      string                  `json:"file"`
	Strategy  string                  `json:"strategy"`
	PageCount int                     `json:"page_count"`
	Entities  []detect.DetectedEntity `json:"entities"`
	Scenes    []detect.SceneInfo      `json:"scenes"`
}

func newDetectCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "detect <file>",
		Short: "Run entity detection over a local script file",
		Long:  "Reads a screenplay document from disk, picks the detection strategy\nmatching its format (structured XML or page text) and prints the detected\nentities and scenes without touching any backend service.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch output {
			case "json", "text":
			default:
				return fmt.Errorf("invalid output format: %s (must be json or text)", output)
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read script file: %w", err)
			}

			report := detectReport{File: args[0]}
			if detect.LooksStructured(data) {
				doc, err := detect.ParseStructuredDocument(data)
				if err != nil {
					return err
				}
				res, err := detect.DetectStructured(doc, detect.DefaultStructuredOptions())
				if err != nil {
					return err
				}
				report.Strategy = "structured"
				report.PageCount = doc.PageCount
				report.Entities = res.Entities
				report.Scenes = res.Scenes
			} else {
				pages := detect.SplitPages(string(data))
				res, err := detect.Detect(pages)
				if err != nil {
					return err
				}
				report.Strategy = "page_text"
				report.PageCount = len(pages)
				report.Entities = res.Entities
				report.Scenes = res.Scenes
			}

			if output == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return printDetectText(cmd, report)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format (json|text)")
	return cmd
}

func printDetectText(cmd *cobra.Command, report detectReport) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d page(s), %d entities, %d scenes (%s strategy)\n",
		report.File, report.PageCount, len(report.Entities), len(report.Scenes), report.Strategy)
	for _, e := range report.Entities {
		dept := e.SuggestedDepartment
		if dept == "" {
			dept = "-"
		}
		fmt.Fprintf(out, "  %-10s %-30s p.%-4d %s\n", e.Type, e.Name, e.HighlightPage, dept)
	}
	for _, s := range report.Scenes {
		fmt.Fprintf(out, "  scene %-3d %-30s %d character(s)\n", s.SceneNumber, s.Location, len(s.Characters))
	}
	return nil
}
