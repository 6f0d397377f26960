package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
	"github.com/panoptikon-app/panoptikon/internal/query"
)

// newSearchCmd runs one filename search against the catalog and prints a
// page of results (resolve -> fetch -> render table/JSON).
func newSearchCmd() *cobra.Command {
	var (
		sortField string
		desc      bool
		offset    int
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog for files and folders matching a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], sortField, desc, offset, limit)
		},
	}

	cmd.Flags().StringVar(&sortField, "sort", "", "sort field: name, extension, size, folder_size, modified_at, created_at")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	cmd.Flags().IntVar(&offset, "offset", 0, "result page offset")
	cmd.Flags().IntVar(&limit, "limit", 0, "result page size (0 = use config page_size)")

	return cmd
}

func runSearch(cmd *cobra.Command, queryText, sortField string, desc bool, offset, limit int) error {
	cc := mustCLIContext(cmd.Context())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pool, store, suffix, err := openCatalog(ctx, cc)
	if err != nil {
		return err
	}
	defer pool.Close()

	planner, err := query.NewPlanner(suffix, cc.Cfg.Search.ResultCacheSize)
	if err != nil {
		return err
	}

	cache, err := query.NewCache(store, planner, nil, cc.Cfg.Search.ResultCacheSize, cc.Logger)
	if err != nil {
		return err
	}
	defer cache.Close()

	sort := buildSortKeys(cc, sortField, desc)

	if limit <= 0 {
		limit = cc.Cfg.Search.PageSize
	}

	rs, err := cache.Search(ctx, queryText, sort)
	if err != nil {
		return err
	}

	rows, err := rs.GetPage(ctx, offset, limit)
	if err != nil {
		return err
	}

	total, err := rs.Total(ctx)
	if err != nil {
		return err
	}

	return renderSearchResults(cmd, cc, rows, total, offset, limit)
}

// buildSortKeys translates the --sort/--desc flags into a query.SortKey
// list, falling back to [search].default_sort/default_order.
func buildSortKeys(cc *CLIContext, sortField string, desc bool) []query.SortKey {
	field := query.SortField(sortField)
	if field == "" {
		field = query.SortField(cc.Cfg.Search.DefaultSort)
	}

	descending := desc || cc.Cfg.Search.DefaultOrder == "desc"

	return []query.SortKey{{Field: field, Descending: descending}}
}

func renderSearchResults(cmd *cobra.Command, cc *CLIContext, rows []catalog.FileRecord, total int64, offset, limit int) error {
	out := cmd.OutOrStdout()
	format := resolveFormat(cc.Cfg.UI.Format, out)

	if format == "json" {
		payload := struct {
			Rows   []catalog.FileRecord `json:"rows"`
			Total  int64                `json:"total"`
			Offset int                  `json:"offset"`
			Limit  int                  `json:"limit"`
		}{Rows: rows, Total: total, Offset: offset, Limit: limit}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(payload)
	}

	headers := []string{"NAME", "SIZE", "MODIFIED", "PATH"}
	tableRows := make([][]string, 0, len(rows))

	for _, r := range rows {
		size := "-"
		if r.HasSize {
			size = formatSize(r.Size)
		} else if r.HasFolderSize {
			size = formatSize(r.FolderSize)
		}

		tableRows = append(tableRows, []string{
			r.Name,
			size,
			formatTime(timeFromUnix(r.ModifiedAt)),
			r.Path,
		})
	}

	printTable(out, headers, tableRows)
	cc.Statusf("%d-%d of %d\n", offset+1, offset+len(rows), total)

	return nil
}

// timeFromUnix converts a catalog record's stored UTC-nanoseconds
// timestamp into a time.Time for display.
func timeFromUnix(nsec int64) time.Time {
	return time.Unix(0, nsec).UTC()
}
