package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/academy-portal/internal/models"
	"github.com/noah-isme/academy-portal/internal/service"
	"github.com/noah-isme/academy-portal/pkg/query"
)

var coursesFlags struct {
	search  string
	subject string
	level   string
	status  string
	page    int
	limit   int
	json    bool
}

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List courses from the catalogue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, logr)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		q := query.New(query.Options[models.Course]{
			Name:            service.QueryCourses,
			Fetch:           a.courses.Fetch,
			Cache:           a.queries,
			DefaultPageSize: cfg.Browse.DefaultPageSize,
			Logger:          logr,
			Observer:        a.metrics,
		})
		defer q.Close()

		q.Set(ctx, query.Params{
			Search: strings.TrimSpace(coursesFlags.search),
			Filters: map[string]string{
				"subject": coursesFlags.subject,
				"level":   coursesFlags.level,
				"status":  coursesFlags.status,
			},
			Page:     coursesFlags.page,
			PageSize: coursesFlags.limit,
		})
		q.Wait()

		snap := q.Snapshot()
		if snap.Status == query.StatusError {
			return snap.Err
		}
		if coursesFlags.json {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}
		return printCourses(cmd, snap)
	},
}

func init() {
	f := coursesCmd.Flags()
	f.StringVarP(&coursesFlags.search, "search", "s", "", "search by title")
	f.StringVar(&coursesFlags.subject, "subject", "all", "subject id or all")
	f.StringVar(&coursesFlags.level, "level", "all", "level id or all")
	f.StringVar(&coursesFlags.status, "status", string(models.CourseStatusActive), "ACTIVE, COMPLETED, NOT_STARTED or all")
	f.IntVarP(&coursesFlags.page, "page", "p", 1, "page number")
	f.IntVar(&coursesFlags.limit, "limit", 0, "page size (default DEFAULT_PAGE_SIZE)")
	f.BoolVar(&coursesFlags.json, "json", false, "print the snapshot as JSON")
}

func printCourses(cmd *cobra.Command, snap query.Snapshot[models.Course]) error {
	out := cmd.OutOrStdout()
	if len(snap.Items) == 0 {
		_, err := fmt.Fprintln(out, "no courses found")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tLEVEL\tSUBJECT\tPRICE")
	for _, c := range snap.Items {
		level, subject := "-", "-"
		if c.Level != nil {
			level = c.Level.Name
		}
		if c.Subject != nil {
			subject = c.Subject.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Title, c.Status, level, subject, c.Price)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "page %d of %d (%d courses)\n", snap.Params.Page, snap.Pages, snap.Total)
	return err
}
