package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calgore/snapaudit/internal/models"
	"github.com/calgore/snapaudit/pkg/audit"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short string unchanged", "backup-operator", "backup-operator"},
		{"exactly twenty unchanged", "aaaaaaaaaaaaaaaaaaaa", "aaaaaaaaaaaaaaaaaaaa"},
		{"over twenty ellipsized", "aaaaaaaaaaaaaaaaaaaaa", "aaaaaaaaaaaaaaaaa..."},
		{"long role session name", "backup-operator-session-2026", "backup-operator-s..."},
		{"wide runes counted double", "데이터베이스백업운영자계정이름", "데이터베이스백업..."},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, StringWidth(got), MaxFieldWidth)
		})
	}
}

func sampleResult() audit.Result {
	base := time.Date(2026, 6, 2, 9, 30, 0, 0, time.UTC)
	events := []models.SnapshotEvent{
		{
			EventID:    "evt-1",
			Kind:       models.KindCreate,
			Time:       base,
			Actor:      "backup-operator",
			VolumeID:   "vol-1",
			SnapshotID: "snap-1",
		},
		{
			EventID:    "evt-2",
			Kind:       models.KindDelete,
			Time:       base.Add(time.Hour),
			Actor:      "janitor",
			SnapshotID: "snap-0",
			ErrorCode:  "Client.InvalidSnapshot.NotFound",
		},
		{
			EventID:  "evt-3",
			Kind:     models.KindCreate,
			Time:     base.Add(2 * time.Hour),
			Actor:    "backup-operator",
			VolumeID: "vol-2",
		},
	}
	volumes := models.VolumeLookup{"vol-1": {VolumeID: "vol-1", InstanceID: "i-aaa"}}
	instances := models.InstanceLookup{"i-aaa": {InstanceID: "i-aaa", Name: "web-1"}}
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	return audit.Correlate(events, volumes, instances, start, start.AddDate(0, 0, 61))
}

func TestReport(t *testing.T) {
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	meta := Meta{
		Region: "us-east-1",
		Start:  time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		End:    &end,
	}
	report := Report(sampleResult(), meta)

	assert.Contains(t, report, "Snapshot Lifecycle Audit")
	assert.Contains(t, report, "Region: us-east-1 (US East (N. Virginia))")
	assert.Contains(t, report, "Window: 2026-06-01 to 2026-08-01 (61 days)")

	// Table header and resolved row content.
	for _, column := range []string{"TIME", "OP", "IDENTITY", "SNAPSHOT ID", "VOLUME ID", "INSTANCE ID", "INSTANCE NAME", "RESULT", "EVENT ID"} {
		assert.Contains(t, report, column)
	}
	assert.Contains(t, report, "snap-1")
	assert.Contains(t, report, "i-aaa")
	assert.Contains(t, report, "web-1")
	assert.Contains(t, report, "Client.InvalidSnapshot.NotFound")
	// The unclassified create renders its explicit result label.
	assert.Contains(t, report, "unknown")

	// Summary counters.
	assert.Contains(t, report, "## Summary")
	assert.Contains(t, report, "Unclassified")

	// snap-1 was never deleted.
	assert.Contains(t, report, "## Orphan Snapshots")
	assert.Contains(t, report, "1 snapshot created but never deleted")
}

func TestReportOpenWindowLabel(t *testing.T) {
	meta := Meta{
		Region: "eu-west-1",
		Start:  time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	report := Report(audit.Result{}, meta)
	assert.Contains(t, report, "Window: 2026-06-01 to now")
}

func TestReportNoOrphansBanner(t *testing.T) {
	meta := Meta{Region: "us-east-1", Start: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	report := Report(audit.Result{}, meta)

	assert.Contains(t, report, "No orphan snapshots found in the audit window.")
	assert.NotContains(t, report, "## Orphan Snapshots")
	// Header line present, no data rows.
	lines := strings.Split(report, "\n")
	headerCount := 0
	for _, line := range lines {
		if strings.HasPrefix(line, "#") && strings.Contains(line, "TIME") {
			headerCount++
		}
	}
	assert.Equal(t, 1, headerCount)
}

// Rendering is pure: same result, same bytes. This is what makes a cached
// second run byte-identical to the first.
func TestReportDeterministic(t *testing.T) {
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	meta := Meta{Region: "us-east-1", Start: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), End: &end}

	first := Report(sampleResult(), meta)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, Report(sampleResult(), meta))
	}
}
