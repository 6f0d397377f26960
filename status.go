package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// catalogStatus is the table/JSON payload newStatusCmd prints: catalog
// health, schema version, and the most recent unfinished indexing run, if
// any. A run that has finished is not reported.
type catalogStatus struct {
	DBPath        string   `json:"db_path"`
	SchemaVersion string   `json:"schema_version"`
	Healthy       bool     `json:"healthy"`
	HealthDetail  string   `json:"health_detail,omitempty"`
	LastRunID     int64    `json:"last_run_id,omitempty"`
	LastRunStart  string   `json:"last_run_start,omitempty"`
	LastRunDone   bool     `json:"last_run_finished"`
	Added         int64    `json:"added"`
	Modified      int64    `json:"modified"`
	Deleted       int64    `json:"deleted"`
	Roots         []string `json:"roots"`
}

// newStatusCmd reports catalog health and the most recent unfinished
// indexing run, found via Store.LoadResumableRun (gather -> build rows ->
// render table or JSON).
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report catalog health, schema version, and any unfinished indexing run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd)
		},
	}
}

func runStatus(cmd *cobra.Command) error {
	cc := mustCLIContext(cmd.Context())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pool, store, _, err := openCatalog(ctx, cc)
	if err != nil {
		return err
	}
	defer pool.Close()

	st := catalogStatus{
		DBPath: cc.DBPath,
		Roots:  cc.Cfg.Indexer.Roots,
	}

	version, err := store.GetSetting(ctx, "schema_version")
	if err != nil {
		return err
	}

	st.SchemaVersion = version

	if healthErr := pool.HealthCheck(ctx); healthErr != nil {
		st.Healthy = false
		st.HealthDetail = healthErr.Error()
	} else {
		st.Healthy = true
	}

	run, err := store.LoadResumableRun(ctx)
	if err != nil {
		return err
	}

	if run != nil {
		st.LastRunID = run.ID
		st.LastRunStart = time.Unix(0, run.StartedAt).UTC().Format(time.RFC3339)
		st.LastRunDone = run.HasFinish
		st.Added = run.Added
		st.Modified = run.Modified
		st.Deleted = run.Deleted
	}

	return renderStatus(cmd, cc, st)
}

func renderStatus(cmd *cobra.Command, cc *CLIContext, st catalogStatus) error {
	out := cmd.OutOrStdout()
	format := resolveFormat(cc.Cfg.UI.Format, out)

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(st)
	}

	headers := []string{"FIELD", "VALUE"}
	rows := [][]string{
		{"db", st.DBPath},
		{"schema version", st.SchemaVersion},
		{"healthy", fmt.Sprintf("%t", st.Healthy)},
	}

	if st.HealthDetail != "" {
		rows = append(rows, []string{"health detail", st.HealthDetail})
	}

	if st.LastRunID != 0 {
		rows = append(rows,
			[]string{"last run id", fmt.Sprintf("%d", st.LastRunID)},
			[]string{"last run started", st.LastRunStart},
			[]string{"last run finished", fmt.Sprintf("%t", st.LastRunDone)},
			[]string{"added", fmt.Sprintf("%d", st.Added)},
			[]string{"modified", fmt.Sprintf("%d", st.Modified)},
			[]string{"deleted", fmt.Sprintf("%d", st.Deleted)},
		)
	}

	for _, root := range st.Roots {
		rows = append(rows, []string{"root", root})
	}

	printTable(out, headers, rows)

	return nil
}
