package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Skufu/postcovid-risk/internal/patient"
	"github.com/Skufu/postcovid-risk/internal/service"
)

func newPatientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "List stored patients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return withService(cmd.Context(), cc, func(_ *service.PredictionService, st recordStore) error {
				list, err := st.ListPatients(cmd.Context())
				if err != nil {
					return err
				}
				if cc.OutputFormat == "json" {
					return printJSON(cmd.OutOrStdout(), list)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tCARD\tNAME\tBORN")
				for _, p := range list {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, p.CardNumber, p.FullName(), p.BirthDate)
				}
				return tw.Flush()
			})
		},
	}
	cmd.AddCommand(newImportCmd())
	return cmd
}

// newImportCmd loads a JSON array of records, in the same shape the API
// returns, and stores each one.
func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import patient records from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(args[0])
			if err != nil {
				return err
			}
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return withService(cmd.Context(), cc, func(_ *service.PredictionService, st recordStore) error {
				for i, rec := range records {
					if rec.Patient.CardNumber == "" {
						return fmt.Errorf("record %d: card number is required", i)
					}
					id, err := st.ImportRecord(cmd.Context(), rec)
					if err != nil {
						return fmt.Errorf("record %d (%s): %w", i, rec.Patient.CardNumber, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "imported %s as patient %d\n", rec.Patient.CardNumber, id)
				}
				return nil
			})
		},
	}
}

func readRecords(path string) ([]patient.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	var records []patient.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse records %s: %w", path, err)
	}
	return records, nil
}
