package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/RedHatInsights/sync-connector/internal/config"
	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/platform/logger"
	"github.com/RedHatInsights/sync-connector/internal/provider"

	"github.com/sirupsen/logrus"
)

// signalContext is cancelled on SIGINT or SIGTERM so an interrupted sync
// still records the partial run
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSync(out io.Writer, resources []string, allResources bool) error {

	logger.InitLogger()
	defer logger.FlushLogger()

	cfg := config.GetConfig()

	c, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	requested := make([]domain.ResourceType, 0, len(resources))
	if allResources {
		requested = c.provider.Graph().Types()
	} else {
		for _, r := range resources {
			requested = append(requested, domain.ResourceType(r))
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	run, err := c.orchestrator.Sync(ctx, requested)
	if err != nil {
		logger.LogError("Unable to start sync", err)
		return err
	}

	if err := writeJSON(out, run); err != nil {
		return err
	}

	if !run.Success {
		logger.Log.WithFields(logrus.Fields{"sync_run_id": run.ID, "errors": run.Errors}).Error("Sync run finished with errors")
		return fmt.Errorf("sync run %s finished with %d errors", run.ID, len(run.Errors))
	}

	return nil
}

func runSyncResource(out io.Writer, resourceType string, resourceID string, parentID string) error {

	logger.InitLogger()
	defer logger.FlushLogger()

	cfg := config.GetConfig()

	c, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	ref := domain.ObjectRef{Type: domain.ResourceType(resourceType), ID: resourceID, ParentID: parentID}

	if _, ok := c.provider.Graph().Definition(ref.Type); !ok {
		return provider.UnknownResourceTypeError{ResourceType: ref.Type}
	}

	ctx, cancel := signalContext()
	defer cancel()

	found, err := c.orchestrator.SyncSingleResource(ctx, ref)
	if err != nil {
		logger.LogErrorWithResource("Unable to sync resource", err, c.provider.Name().String(), resourceType)
		return err
	}

	return writeJSON(out, struct {
		domain.ObjectRef
		Found bool `json:"found"`
	}{ref, found})
}

func printStatus(out io.Writer) error {

	logger.InitLogger()
	defer logger.FlushLogger()

	cfg := config.GetConfig()

	c, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := context.Background()

	counts, err := c.records.CountByType(ctx, c.provider.Name())
	if err != nil {
		logger.LogError("Unable to count stored records", err)
		return err
	}

	types := make([]string, 0, len(counts))
	for rt := range counts {
		types = append(types, rt.String())
	}
	sort.Strings(types)

	fmt.Fprintf(out, "provider: %s\n", c.provider.Name())
	for _, rt := range types {
		fmt.Fprintf(out, "%-24s %d\n", rt, counts[domain.ResourceType(rt)])
	}

	lastRun, err := c.runs.Latest(ctx, c.provider.Name())
	if err != nil {
		logger.LogError("Unable to read the latest sync run", err)
		return err
	}

	if lastRun == nil {
		fmt.Fprintln(out, "last run: never")
		return nil
	}

	fmt.Fprintf(out, "last run: %s success=%t duration_ms=%d errors=%d\n",
		lastRun.FinishedAt.Format("2006-01-02T15:04:05Z07:00"), lastRun.Success, lastRun.DurationMs, len(lastRun.Errors))

	return nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
