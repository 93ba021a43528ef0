package formatter

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/calgore/snapaudit/internal/models"
	"github.com/calgore/snapaudit/pkg/audit"
	"github.com/calgore/snapaudit/pkg/utils"
)

// timeLayout is the compact per-row timestamp format.
const timeLayout = "2006-01-02 15:04"

// Meta carries the window parameters for the report header. It contains no
// run-time data, so two runs over the same window render byte-identical
// reports.
type Meta struct {
	Region string
	Start  time.Time
	End    *time.Time // nil means "now"
}

// Report renders the full audit report as one string. The same bytes go to
// the console and to the report file; nothing already decided by the
// correlator is recomputed here.
func Report(res audit.Result, meta Meta) string {
	var b strings.Builder

	endLabel := "now"
	if meta.End != nil {
		endLabel = meta.End.Format(utils.DateLayout)
	}
	fmt.Fprintf(&b, "Snapshot Lifecycle Audit\n")
	fmt.Fprintf(&b, "Region: %s (%s)\n", meta.Region, utils.GetRegionDescriptiveName(meta.Region))
	fmt.Fprintf(&b, "Window: %s to %s (%s)\n\n", meta.Start.Format(utils.DateLayout), endLabel,
		english.Plural(res.WindowDays, "day", ""))

	writeEventTable(&b, res.Rows)
	writeSummary(&b, res)
	writeOrphans(&b, res.Orphans)

	return b.String()
}

func writeEventTable(b *strings.Builder, rows []audit.Row) {
	w := tabwriter.NewWriter(b, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "#\tTIME\tOP\tIDENTITY\tSNAPSHOT ID\tVOLUME ID\tINSTANCE ID\tINSTANCE NAME\tRESULT\tEVENT ID")
	for _, row := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Seq,
			row.Event.Time.Format(timeLayout),
			opLabel(row.Event.Kind),
			Truncate(orPlaceholder(row.Event.Actor)),
			orPlaceholder(row.Event.SnapshotID),
			orPlaceholder(row.Event.VolumeID),
			row.InstanceID,
			Truncate(row.InstanceName),
			resultLabel(row),
			orPlaceholder(row.Event.EventID),
		)
	}
	w.Flush()
}

func writeSummary(b *strings.Builder, res audit.Result) {
	fmt.Fprintln(b, "\n## Summary")
	w := tabwriter.NewWriter(b, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "Total events\t%s\n", humanize.Comma(int64(res.Counters.Total)))
	fmt.Fprintf(w, "Create succeeded\t%s\n", humanize.Comma(int64(res.Counters.CreateSuccess)))
	fmt.Fprintf(w, "Create failed\t%s\n", humanize.Comma(int64(res.Counters.CreateFailure)))
	fmt.Fprintf(w, "Delete succeeded\t%s\n", humanize.Comma(int64(res.Counters.DeleteSuccess)))
	fmt.Fprintf(w, "Delete failed\t%s\n", humanize.Comma(int64(res.Counters.DeleteFailure)))
	if res.Counters.Unclassified > 0 {
		fmt.Fprintf(w, "Unclassified\t%s\n", humanize.Comma(int64(res.Counters.Unclassified)))
	}
	fmt.Fprintf(w, "Distinct instances\t%s\n", humanize.Comma(int64(res.Counters.DistinctInstances)))
	fmt.Fprintf(w, "Orphan snapshots\t%s\n", humanize.Comma(int64(res.Counters.Orphans)))
	w.Flush()
}

func writeOrphans(b *strings.Builder, orphans []audit.Orphan) {
	if len(orphans) == 0 {
		fmt.Fprintln(b, "\nNo orphan snapshots found in the audit window.")
		return
	}
	fmt.Fprintf(b, "\n## Orphan Snapshots (%s created but never deleted)\n",
		english.Plural(len(orphans), "snapshot", ""))
	w := tabwriter.NewWriter(b, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "SNAPSHOT ID\tVOLUME ID\tINSTANCE ID\tCREATED\tCREATED BY")
	for _, orphan := range orphans {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			orphan.SnapshotID,
			orPlaceholder(orphan.Event.VolumeID),
			orphan.InstanceID,
			orphan.Event.Time.Format(timeLayout),
			Truncate(orPlaceholder(orphan.Event.Actor)),
		)
	}
	w.Flush()
}

func opLabel(kind models.EventKind) string {
	switch kind {
	case models.KindCreate:
		return "create"
	case models.KindDelete:
		return "delete"
	}
	return string(kind)
}

func resultLabel(row audit.Row) string {
	switch row.Bucket {
	case audit.BucketCreateSuccess, audit.BucketDeleteSuccess:
		return "success"
	case audit.BucketCreateFailure, audit.BucketDeleteFailure:
		return row.Event.ErrorCode
	}
	return "unknown"
}

func orPlaceholder(s string) string {
	if s == "" {
		return audit.Placeholder
	}
	return s
}
