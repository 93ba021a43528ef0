package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/inconshreveable/log15"
	"github.com/spf13/cobra"

	"github.com/calgore/snapaudit/internal/models"
	"github.com/calgore/snapaudit/internal/version"
	"github.com/calgore/snapaudit/pkg/audit"
	"github.com/calgore/snapaudit/pkg/aws"
	"github.com/calgore/snapaudit/pkg/cache"
	"github.com/calgore/snapaudit/pkg/formatter"
	"github.com/calgore/snapaudit/pkg/utils"
)

var (
	startDate string
	endDate   string
	region    string
	cacheDir  string
	verbose   bool
	noCache   bool
)

// startFetchSpinner creates and starts a spinner with a message for the given dataset
func startFetchSpinner(what string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[9], 200*time.Millisecond)
	s.Suffix = fmt.Sprintf(" Fetching %s ...", what)
	s.Start()
	return s
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "snapaudit",
		Short: "CLI tool to audit EBS snapshot lifecycle activity",
		Long: `snapaudit correlates CloudTrail CreateSnapshot/DeleteSnapshot events
with current volume and instance topology and reports snapshots that were
created but never deleted inside the audit window.`,
		Version:       version.Get().String(),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	rootCmd.Flags().StringVarP(&startDate, "start", "s", "", "Start of the audit window (YYYY-MM-DD, required)")
	rootCmd.Flags().StringVarP(&endDate, "end", "e", "", "End of the audit window (YYYY-MM-DD, default: now)")
	rootCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region to audit (required)")
	rootCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Cache directory (default: ~/.snapaudit)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug diagnostics")
	rootCmd.Flags().BoolVar(&noCache, "no-cache", false, "Ignore existing cache entries (still writes new ones)")

	_ = rootCmd.MarkFlagRequired("start")
	_ = rootCmd.MarkFlagRequired("region")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	logger := setupLogger()

	start, err := utils.ParseDate(startDate)
	if err != nil {
		return err
	}
	var end *time.Time
	if endDate != "" {
		parsed, err := utils.ParseDate(endDate)
		if err != nil {
			return err
		}
		if parsed.Before(start) {
			return fmt.Errorf("end date %s is before start date %s", endDate, startDate)
		}
		end = &parsed
	}
	if !utils.IsValidRegion(region) {
		return fmt.Errorf("invalid region %q", region)
	}

	dir := cacheDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error resolving home directory: %w", err)
		}
		dir = filepath.Join(home, ".snapaudit")
	}
	store := cache.NewStore(dir, noCache, logger)
	key := cache.Key(start, end, region)
	ctx := context.Background()

	events, err := loadEvents(ctx, store, key, start, end, logger)
	if err != nil {
		return err
	}

	volumes, instances, err := loadTopology(ctx, store, key, events, logger)
	if err != nil {
		return err
	}

	effectiveEnd := time.Now().UTC()
	if end != nil {
		effectiveEnd = *end
	}
	result := audit.Correlate(events, volumes, instances, start, effectiveEnd)

	report := formatter.Report(result, formatter.Meta{
		Region: region,
		Start:  start,
		End:    end,
	})
	fmt.Print(report)

	if err := store.WriteReport(key, []byte(report)); err != nil {
		return err
	}
	fmt.Printf("\nReport written to %s\n", store.ReportPath(key))
	return nil
}

// loadEvents returns the merged create/delete event collections for the
// window, from cache when present. The two live fetches are independent of
// each other and run concurrently; both must succeed or the run aborts.
func loadEvents(ctx context.Context, store *cache.Store, key string, start time.Time, end *time.Time, logger log15.Logger) ([]models.SnapshotEvent, error) {
	var cached []models.SnapshotEvent
	hit, err := store.GetJSON(key, cache.DatasetEvents, &cached)
	if err != nil {
		return nil, err
	}
	if hit {
		logger.Info("using cached audit events", "key", key, "count", len(cached))
		return cached, nil
	}

	fetchStart := time.Now()
	s := startFetchSpinner("CloudTrail snapshot events")

	client, err := aws.NewTrailClient(region, logger)
	if err != nil {
		s.Stop()
		return nil, err
	}

	results := make([]struct {
		events []models.SnapshotEvent
		err    error
	}, 2)

	var wg sync.WaitGroup
	for i, kind := range []models.EventKind{models.KindCreate, models.KindDelete} {
		wg.Add(1)
		go func(idx int, k models.EventKind) {
			defer wg.Done()
			results[idx].events, results[idx].err = client.LookupSnapshotEvents(ctx, k, start, end)
		}(i, kind)
	}
	wg.Wait()

	var events []models.SnapshotEvent
	for _, result := range results {
		if result.err != nil {
			s.Stop()
			return nil, result.err
		}
		events = append(events, result.events...)
	}

	s.FinalMSG = fmt.Sprintf("✓ [%d events found] CloudTrail audit log fetched - Completed in %.2f seconds\n",
		len(events), time.Since(fetchStart).Seconds())
	s.Stop()

	if err := store.PutJSON(key, cache.DatasetEvents, events); err != nil {
		logger.Warn("failed to cache events", "err", err)
	}
	return events, nil
}

// loadTopology resolves the volume->instance and instance->name lookups for
// every volume the event stream references. Resources gone from inventory
// simply produce no entry; the correlator degrades those to sentinels.
func loadTopology(ctx context.Context, store *cache.Store, key string, events []models.SnapshotEvent, logger log15.Logger) (models.VolumeLookup, models.InstanceLookup, error) {
	referencedVolumes := map[string]struct{}{}
	for _, e := range events {
		if e.VolumeID != "" {
			referencedVolumes[e.VolumeID] = struct{}{}
		}
	}
	if len(referencedVolumes) == 0 {
		return models.VolumeLookup{}, models.InstanceLookup{}, nil
	}

	volumes := models.VolumeLookup{}
	instances := models.InstanceLookup{}
	volumesHit, err := store.GetJSON(key, cache.DatasetVolumes, &volumes)
	if err != nil {
		return nil, nil, err
	}
	instancesHit, err := store.GetJSON(key, cache.DatasetInstances, &instances)
	if err != nil {
		return nil, nil, err
	}
	if volumesHit && instancesHit {
		logger.Info("using cached topology", "key", key, "volumes", len(volumes), "instances", len(instances))
		return volumes, instances, nil
	}

	fetchStart := time.Now()
	s := startFetchSpinner("volume and instance inventory")

	client, err := aws.NewInventoryClient(region, logger)
	if err != nil {
		s.Stop()
		return nil, nil, err
	}

	volumes, err = client.VolumeAttachments(ctx, referencedVolumes)
	if err != nil {
		s.Stop()
		return nil, nil, err
	}

	referencedInstances := map[string]struct{}{}
	for _, att := range volumes {
		if att.InstanceID != "" {
			referencedInstances[att.InstanceID] = struct{}{}
		}
	}
	instances, err = client.InstanceNames(ctx, referencedInstances)
	if err != nil {
		s.Stop()
		return nil, nil, err
	}

	s.FinalMSG = fmt.Sprintf("✓ [%d volumes, %d instances resolved] Inventory fetched - Completed in %.2f seconds\n",
		len(volumes), len(instances), time.Since(fetchStart).Seconds())
	s.Stop()

	if err := store.PutJSON(key, cache.DatasetVolumes, volumes); err != nil {
		logger.Warn("failed to cache volume lookup", "err", err)
	}
	if err := store.PutJSON(key, cache.DatasetInstances, instances); err != nil {
		logger.Warn("failed to cache instance lookup", "err", err)
	}
	return volumes, instances, nil
}

func setupLogger() log15.Logger {
	logger := log15.New()
	level := log15.LvlInfo
	if verbose {
		level = log15.LvlDebug
	}
	logger.SetHandler(log15.LvlFilterHandler(level, log15.StreamHandler(os.Stderr, log15.TerminalFormat())))
	return logger
}
