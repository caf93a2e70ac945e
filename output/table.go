package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/s0up4200/splatctl/bugsplat"
	"github.com/s0up4200/splatctl/config"
	"github.com/s0up4200/splatctl/fetcher"
)

var (
	bold   = color.New(color.Bold)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	faint  = color.New(color.Faint)
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// PrintDatabases lists the configured databases, marking the selected ones
func PrintDatabases(w io.Writer, dbs []config.Database, selected []config.Database) error {
	if len(dbs) == 0 {
		yellow.Fprintln(w, "No databases configured")
		return nil
	}

	chosen := make(map[string]bool, len(selected))
	for _, db := range selected {
		chosen[db.Name] = true
	}

	tw := newTable(w)
	fmt.Fprintln(tw, bold.Sprint("DATABASE")+"\t"+bold.Sprint("TAGS")+"\t"+bold.Sprint("SELECTED"))
	for _, db := range dbs {
		mark := faint.Sprint("-")
		if chosen[db.Name] {
			mark = green.Sprint("yes")
		}
		tags := strings.Join(db.Tags, ", ")
		if tags == "" {
			tags = faint.Sprint("(none)")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", db.Name, tags, mark)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d of %d databases selected\n", len(selected), len(dbs))
	return nil
}

// PrintUsers lists the users of one database
func PrintUsers(w io.Writer, database string, users []bugsplat.Record) error {
	bold.Fprintf(w, "%s", database)
	fmt.Fprintf(w, " (%d users)\n", len(users))

	if len(users) == 0 {
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "  UID\tUSERNAME")
	for _, u := range users {
		fmt.Fprintf(tw, "  %s\t%s\n", u.String("uId"), u.String("username"))
	}
	return tw.Flush()
}

// PrintSummary reports, per target, how many rows were kept and why the
// target stopped.
func PrintSummary(w io.Writer, rs fetcher.ResultSet) error {
	tw := newTable(w)
	fmt.Fprintln(tw, bold.Sprint("DATABASE")+"\t"+bold.Sprint("ROWS")+"\t"+bold.Sprint("PAGES")+"\t"+bold.Sprint("STATUS"))
	for _, r := range rs {
		status := green.Sprint(r.Stop.String())
		switch {
		case r.Failed():
			status = red.Sprintf("%s: %v", r.Stop, r.Err)
		case r.Stop == fetcher.StopBoundary || r.Stop == fetcher.StopExhausted:
			status = yellow.Sprint(r.Stop.String())
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", r.Database, len(r.Rows), r.Pages, status)
	}
	return tw.Flush()
}
