package audit

import (
	"sort"
	"time"

	"github.com/calgore/snapaudit/internal/models"
	"github.com/calgore/snapaudit/pkg/utils"
)

// Bucket is the classification of one audit event.
type Bucket int

const (
	BucketCreateSuccess Bucket = iota
	BucketCreateFailure
	BucketDeleteSuccess
	BucketDeleteFailure
	// BucketUnclassified catches events matching neither the success nor the
	// failure predicate of their kind (e.g. a create with no snapshot id and
	// no error code). Counted explicitly so nothing drops out silently.
	BucketUnclassified
)

// Placeholder is the sentinel rendered for any unresolvable field.
const Placeholder = "-"

// Detached marks a volume that exists in inventory with no attachment.
const Detached = "detached"

// Row is the rendering-ready projection of one event: its bucket plus the
// resolved instance id and display name. Rows are ordered and numbered by
// event timestamp, 1-based.
type Row struct {
	Seq          int
	Event        models.SnapshotEvent
	Bucket       Bucket
	InstanceID   string
	InstanceName string
}

// Counters are the scalar summary of one correlation pass.
type Counters struct {
	Total             int
	CreateSuccess     int
	CreateFailure     int
	DeleteSuccess     int
	DeleteFailure     int
	Unclassified      int
	DistinctInstances int
	Orphans           int
}

// Orphan is a create-success event whose snapshot id never appears as a
// successfully deleted snapshot inside the same window.
type Orphan struct {
	SnapshotID   string
	Event        models.SnapshotEvent
	InstanceID   string
	InstanceName string
}

// Result is the complete output of a correlation pass.
type Result struct {
	Rows       []Row
	Counters   Counters
	Orphans    []Orphan
	WindowDays int
}

// Classify assigns an event to exactly one bucket. Predicate order is fixed:
// success is checked before failure, event kind before error state. A create
// succeeded iff the response carried a snapshot id; absence of the id implies
// failure even without an explicit error code.
func Classify(e models.SnapshotEvent) Bucket {
	switch e.Kind {
	case models.KindCreate:
		if e.SnapshotID != "" {
			return BucketCreateSuccess
		}
		if e.ErrorCode != "" {
			return BucketCreateFailure
		}
	case models.KindDelete:
		if e.SnapshotID != "" && e.ErrorCode == "" {
			return BucketDeleteSuccess
		}
		if e.ErrorCode != "" {
			return BucketDeleteFailure
		}
	}
	return BucketUnclassified
}

// Correlate joins the event stream against the current-state topology
// lookups and computes rows, counters and the orphan set. It is a pure
// function: same inputs, same output, no I/O.
//
// The orphan set is pure set subtraction, not time ordering: a snapshot is
// an orphan iff no delete-success for its id exists anywhere in the window.
// A create after the window's last delete, or a delete that fell outside
// audit-log retention, both surface as orphans. That is expected output.
func Correlate(events []models.SnapshotEvent, volumes models.VolumeLookup, instances models.InstanceLookup, start time.Time, end time.Time) Result {
	sorted := make([]models.SnapshotEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	res := Result{
		WindowDays: utils.WindowDays(start, end),
	}
	res.Counters.DistinctInstances = len(instances)

	// Snapshot id -> originating create-success event. Provider ids are
	// unique, but if a duplicate ever appears the last occurrence in
	// timestamp order wins.
	created := make(map[string]models.SnapshotEvent)
	deleted := make(map[string]struct{})

	for _, e := range sorted {
		bucket := Classify(e)
		switch bucket {
		case BucketCreateSuccess:
			res.Counters.CreateSuccess++
			created[e.SnapshotID] = e
		case BucketCreateFailure:
			res.Counters.CreateFailure++
		case BucketDeleteSuccess:
			res.Counters.DeleteSuccess++
			deleted[e.SnapshotID] = struct{}{}
		case BucketDeleteFailure:
			res.Counters.DeleteFailure++
		case BucketUnclassified:
			res.Counters.Unclassified++
		}

		instanceID, instanceName := resolve(e, volumes, instances)
		res.Rows = append(res.Rows, Row{
			Seq:          len(res.Rows) + 1,
			Event:        e,
			Bucket:       bucket,
			InstanceID:   instanceID,
			InstanceName: instanceName,
		})
	}
	res.Counters.Total = len(sorted)

	// Orphans in create-time order for a deterministic listing.
	orphanIDs := make([]string, 0, len(created))
	for id := range created {
		if _, ok := deleted[id]; !ok {
			orphanIDs = append(orphanIDs, id)
		}
	}
	sort.Slice(orphanIDs, func(i, j int) bool {
		a, b := created[orphanIDs[i]], created[orphanIDs[j]]
		if a.Time.Equal(b.Time) {
			return orphanIDs[i] < orphanIDs[j]
		}
		return a.Time.Before(b.Time)
	})
	for _, id := range orphanIDs {
		e := created[id]
		instanceID, instanceName := resolve(e, volumes, instances)
		res.Orphans = append(res.Orphans, Orphan{
			SnapshotID:   id,
			Event:        e,
			InstanceID:   instanceID,
			InstanceName: instanceName,
		})
	}
	res.Counters.Orphans = len(res.Orphans)

	return res
}

// resolve maps an event to its display instance id and name. Missing lookups
// degrade to the "-" sentinel, never to an error: a volume absent from
// inventory is unknown, a volume present without an attachment is detached,
// and neither resolves to a named instance.
func resolve(e models.SnapshotEvent, volumes models.VolumeLookup, instances models.InstanceLookup) (string, string) {
	if e.VolumeID == "" {
		return Placeholder, Placeholder
	}
	att, ok := volumes[e.VolumeID]
	if !ok {
		return Placeholder, Placeholder
	}
	if att.InstanceID == "" {
		return Detached, Placeholder
	}
	info, ok := instances[att.InstanceID]
	if !ok {
		return att.InstanceID, Placeholder
	}
	if info.Name == "" {
		return att.InstanceID, "(no name)"
	}
	return att.InstanceID, info.Name
}
