package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/panoptikon-app/panoptikon/internal/perror"
)

// doctorReport is the payload newDoctorCmd prints: the catalog's own
// health check plus a per-root accessibility probe. A short human remedy
// is attached to a failed catalog check only; a failed root check carries
// its error text.
type doctorReport struct {
	DBPath     string      `json:"db_path"`
	Healthy    bool        `json:"healthy"`
	Detail     string      `json:"detail,omitempty"`
	Remedy     string      `json:"remedy,omitempty"`
	RootChecks []rootCheck `json:"root_checks"`
}

type rootCheck struct {
	Path  string `json:"path"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// newDoctorCmd runs the catalog integrity check plus a readability probe
// over every configured root, printing a short remedy alongside a catalog
// integrity failure and the error text for an unreadable root.
func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose catalog integrity and root accessibility",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
}

func runDoctor(cmd *cobra.Command) error {
	cc := mustCLIContext(cmd.Context())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pool, _, _, err := openCatalog(ctx, cc)
	if err != nil {
		return err
	}
	defer pool.Close()

	report := doctorReport{DBPath: cc.DBPath}

	if healthErr := pool.HealthCheck(ctx); healthErr != nil {
		report.Healthy = false
		report.Detail = healthErr.Error()
		report.Remedy = "run `panoptikon rebuild` to restore the catalog from a clean crawl"
	} else {
		report.Healthy = true
	}

	for _, root := range cc.Cfg.Indexer.Roots {
		check := rootCheck{Path: root}

		if info, statErr := os.Stat(root); statErr != nil {
			check.OK = false
			check.Error = statErr.Error()
		} else if !info.IsDir() {
			check.OK = false
			check.Error = "not a directory"
		} else {
			check.OK = true
		}

		report.RootChecks = append(report.RootChecks, check)
	}

	return renderDoctor(cmd, cc, report)
}

func renderDoctor(cmd *cobra.Command, cc *CLIContext, report doctorReport) error {
	out := cmd.OutOrStdout()
	format := resolveFormat(cc.Cfg.UI.Format, out)

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(report)
	}

	headers := []string{"CHECK", "RESULT", "DETAIL"}
	rows := [][]string{
		{"catalog integrity", fmt.Sprintf("%t", report.Healthy), report.Detail},
	}

	if report.Remedy != "" {
		rows = append(rows, []string{"remedy", "", report.Remedy})
	}

	for _, c := range report.RootChecks {
		rows = append(rows, []string{"root: " + c.Path, fmt.Sprintf("%t", c.OK), c.Error})
	}

	printTable(out, headers, rows)

	if !report.Healthy {
		return perror.New(perror.CategoryCatalogFatal, "cli.doctor", "", fmt.Sprintf("catalog is unhealthy: %s", report.Detail), nil)
	}

	return nil
}
