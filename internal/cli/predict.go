package cli

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Skufu/postcovid-risk/internal/report"
	"github.com/Skufu/postcovid-risk/internal/risk"
	"github.com/Skufu/postcovid-risk/internal/service"
)

func parsePatientID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid patient id %q", arg)
	}
	return id, nil
}

func newPredictCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "predict <patient-id>",
		Short: "Score every disease category for a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePatientID(args[0])
			if err != nil {
				return err
			}
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return withService(cmd.Context(), cc, func(svc *service.PredictionService, _ recordStore) error {
				pred, err := svc.Predict(cmd.Context(), id)
				if err != nil {
					return err
				}
				if top > 0 {
					pred.Assessments = risk.TopRisks(pred.Assessments, top)
				}
				out := cmd.OutOrStdout()
				if cc.OutputFormat == "json" {
					return printJSON(out, pred)
				}
				fmt.Fprintf(out, "Patient: %s (age %d, %s)\n", pred.Patient.FullName(), pred.Age, pred.AgeState)
				for _, a := range pred.Assessments {
					fmt.Fprintln(out, report.Summary(a))
				}
				if len(pred.Synthesized) > 0 {
					fmt.Fprintf(out, "Estimated (not recorded): %v\n", pred.Synthesized)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&top, "top", 0, "show only the N highest risks")
	return cmd
}

func newPlanCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "plan <patient-id>",
		Short: "Build a prevention plan from the highest risks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePatientID(args[0])
			if err != nil {
				return err
			}
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return withService(cmd.Context(), cc, func(svc *service.PredictionService, _ recordStore) error {
				plan, err := svc.PreventionPlan(cmd.Context(), id, top)
				if err != nil {
					return err
				}
				if cc.OutputFormat == "json" {
					return printJSON(cmd.OutOrStdout(), plan)
				}
				return report.WriteText(cmd.OutOrStdout(), plan)
			})
		},
	}
	cmd.Flags().IntVar(&top, "top", 0, "number of top risks (default from config)")
	return cmd
}

func newReportCmd() *cobra.Command {
	var (
		top    int
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "report <patient-id>",
		Short: "Export a risk report as text or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePatientID(args[0])
			if err != nil {
				return err
			}
			if format != "text" && format != "xlsx" {
				return fmt.Errorf("unsupported report format %q", format)
			}
			if format == "xlsx" && out == "" {
				return fmt.Errorf("--out is required for xlsx reports")
			}
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return withService(cmd.Context(), cc, func(svc *service.PredictionService, _ recordStore) error {
				plan, err := svc.PreventionPlan(cmd.Context(), id, top)
				if err != nil {
					return err
				}

				var data []byte
				if format == "xlsx" {
					data, err = report.WriteXLSX(plan)
				} else {
					var buf bytes.Buffer
					err = report.WriteText(&buf, plan)
					data = buf.Bytes()
				}
				if err != nil {
					return err
				}

				if out == "" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&top, "top", 0, "number of top risks (default from config)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "report format (text, xlsx)")
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout for text)")
	return cmd
}
