package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/mdarezzo/massundelete/internal/backend"
	"github.com/mdarezzo/massundelete/internal/backend/azure"
	"github.com/mdarezzo/massundelete/internal/debug"
	"github.com/mdarezzo/massundelete/internal/errors"
	"github.com/mdarezzo/massundelete/internal/restore"
	"github.com/mdarezzo/massundelete/internal/ui"
	"github.com/mdarezzo/massundelete/internal/ui/progress"
)

// RestoreOptions collects all options for the restore run.
type RestoreOptions struct {
	AccountURL         string
	Container          string
	AccountKey         string
	Prefix             string
	ForceCliCredential bool
	DryRun             bool

	MinConcurrency int
	MaxConcurrency int
	Retries        int
	CallTimeout    time.Duration
	ReportInterval time.Duration
}

var restoreOptions RestoreOptions

func (opts *RestoreOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVarP(&opts.AccountURL, "account-url", "u", "", "storage account `URL`, e.g. https://<account>.dfs.core.windows.net")
	f.StringVarP(&opts.Container, "container", "c", "", "`name` of the container to restore deleted paths in")
	f.StringVarP(&opts.AccountKey, "account-key", "k", os.Getenv("AZURE_STORAGE_KEY"), "storage account access `key` (default: $AZURE_STORAGE_KEY, otherwise ambient credentials are used)")
	f.StringVar(&opts.Prefix, "prefix", "", "only restore deleted paths below this `directory`")
	f.BoolVar(&opts.ForceCliCredential, "azure-cli", false, "authenticate through the Azure CLI instead of the default credential chain")
	f.BoolVar(&opts.DryRun, "dry-run", false, "do not restore anything, just list what would be done")
	f.IntVar(&opts.MinConcurrency, "min-concurrency", 10, "lower bound for the number of concurrent restore calls")
	f.IntVar(&opts.MaxConcurrency, "max-concurrency", 600, "upper bound for the number of concurrent restore calls")
	f.IntVar(&opts.Retries, "retries", 5, "give up on a path after this many retries of throttled or transient failures")
	f.DurationVar(&opts.CallTimeout, "call-timeout", 2*time.Minute, "timeout for a single restore call")
	f.DurationVar(&opts.ReportInterval, "report-interval", 2*time.Second, "interval between progress reports")
}

func runRestore(ctx context.Context, opts RestoreOptions, gopts GlobalOptions) error {
	printer := newTermPrinter(gopts)

	if opts.AccountURL == "" {
		return errors.Fatal("please specify the storage account URL (--account-url)")
	}
	if opts.Container == "" {
		return errors.Fatal("please specify the container name (--container)")
	}

	cfg := azure.NewConfig()
	cfg.AccountURL = opts.AccountURL
	cfg.Container = opts.Container
	cfg.AccountKey = opts.AccountKey
	cfg.Prefix = opts.Prefix
	cfg.ForceCliCredential = opts.ForceCliCredential
	if err := cfg.Validate(); err != nil {
		return err
	}

	policy := restore.DefaultPolicy()
	policy.MinConcurrency = opts.MinConcurrency
	policy.MaxConcurrency = opts.MaxConcurrency
	policy.MaxRetries = opts.Retries
	policy.CallTimeout = opts.CallTimeout

	if opts.AccountKey != "" {
		printer.V("authenticating with the account access key")
	} else if opts.ForceCliCredential {
		printer.V("authenticating through the Azure CLI")
	} else {
		printer.V("authenticating with the default credential chain")
	}

	be, err := azure.Open(cfg)
	if err != nil {
		return errors.Fatalf("unable to open container %v: %v", opts.Container, err)
	}

	engine, err := restore.New(be, policy, printer)
	if err != nil {
		return errors.Fatalf("invalid configuration: %v", err)
	}

	printer.P("listing deleted paths in container %v", opts.Container)
	count := 0
	err = be.ListDeleted(ctx, func(p backend.DeletedPath) error {
		debug.Log("deleted path %v (%v)", p.Path, p.DeletionID)
		engine.Add(restore.NewTask(p))
		count++
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return errors.Fatalf("unable to list deleted paths: %v", err)
	}

	if count == 0 {
		printer.P("no deleted paths found")
		return nil
	}

	if opts.DryRun {
		printer.P("dry run: %d deleted paths would be restored", count)
		return nil
	}

	printer.P("restoring %d deleted paths", count)

	updater := progress.NewUpdater(opts.ReportInterval, func(_ time.Duration, final bool) {
		if final {
			printer.ClearStatus()
			return
		}
		printer.Status(progressLine(engine.Snapshot()))
	})

	sum, runErr := engine.Run(ctx)
	updater.Done()

	printSummary(printer, gopts, sum)

	return runErr
}

func progressLine(s restore.Snapshot) string {
	eta := "unknown"
	if s.ETAKnown {
		eta = ui.FormatDuration(s.ETA)
	}

	return fmt.Sprintf("[%s] %d / %d restored, %d failed, %.1f it/s, ETA %s, errors %s, concurrency %d",
		ui.FormatDuration(s.Elapsed), s.Restored+s.AlreadyExists, s.Total, s.Failed,
		s.Rate, eta, ui.FormatPercent(s.Failed, s.Attempts), s.Limit)
}

func printSummary(printer *termPrinter, gopts GlobalOptions, sum restore.Summary) {
	for _, f := range sum.Failures {
		printer.V("failed: %v: %v", f.Path, f.Err)
	}

	printer.P("")
	printer.P("restored %d paths (%d were already restored), %d failed permanently",
		sum.Restored+sum.AlreadyExists, sum.AlreadyExists, sum.Failed)
	if sum.Pending > 0 {
		printer.P("%d paths were not processed before the run was interrupted", sum.Pending)
	}

	secs := sum.Duration.Seconds()
	if secs > 0 {
		printer.P("total time: %s, average throughput: %.1f paths/s",
			ui.FormatDuration(sum.Duration), float64(sum.Restored+sum.AlreadyExists)/secs)
	}
}
