package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/grans-cli/grans/internal/dateresolve"
	"github.com/grans-cli/grans/internal/embed"
	"github.com/grans-cli/grans/internal/syncapi"
)

type syncFlags struct {
	dryRun  bool
	limit   int
	since   string
	delayMs int
	retry   bool
	embed   bool
}

func newSyncCmd() *cobra.Command {
	var f syncFlags

	cmd := &cobra.Command{
		Use:   "sync [documents|transcripts|people|calendars|templates|recipes|panels]",
		Short: "Pull new and changed records from the upstream document API",
		Args:  cobra.MaximumNArgs(1),
		RunE: runE(func(cmd *cobra.Command, a *app, args []string) error {
			kind := "all"
			if len(args) == 1 {
				kind = args[0]
			}
			return runSync(cmd, a, kind, f)
		}),
	}

	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Report what would sync without writing to the store")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Maximum number of documents to visit (transcripts/panels)")
	cmd.Flags().StringVar(&f.since, "since", "", "Only consider documents updated on or after this date")
	cmd.Flags().IntVar(&f.delayMs, "delay-ms", 0, "Extra pacing delay between per-document requests")
	cmd.Flags().BoolVar(&f.retry, "retry", false, "Retry documents previously recorded as failed or not-found")
	cmd.Flags().BoolVar(&f.embed, "embed", false, "Build the semantic index after syncing")

	return cmd
}

func runSync(cmd *cobra.Command, a *app, kind string, f syncFlags) error {
	syncer, err := syncapi.New(a.st, a.cfg.SyncAPI, flags.token)
	if err != nil {
		return err
	}

	var since *time.Time
	if f.since != "" {
		rng, err := a.dates.Resolve(dateresolve.Options{From: f.since})
		if err != nil {
			return err
		}
		since = rng.Start
	}

	if f.dryRun {
		a.out.Status("i", fmt.Sprintf("dry run: would sync %q (no writes)", kind))
		return nil
	}

	result := map[string]any{"action": "sync", "kind": kind}

	switch kind {
	case "documents":
		stats, err := syncer.SyncDocuments(cmd.Context())
		if err != nil {
			return err
		}
		result["documents"] = stats
		a.out.Success(fmt.Sprintf("documents: %d inserted, %d updated, %d unchanged", stats.Inserted, stats.Updated, stats.Unchanged))

	case "people":
		stats, err := syncer.SyncPeople(cmd.Context())
		if err != nil {
			return err
		}
		result["people"] = stats
		a.out.Success(fmt.Sprintf("people: %d inserted, %d updated, %d unchanged", stats.Inserted, stats.Updated, stats.Unchanged))

	case "calendars":
		stats, err := syncer.SyncCalendarEvents(cmd.Context())
		if err != nil {
			return err
		}
		result["calendars"] = stats
		a.out.Success(fmt.Sprintf("calendars: %d inserted, %d updated, %d unchanged", stats.Inserted, stats.Updated, stats.Unchanged))

	case "templates":
		stats, err := syncer.SyncTemplates(cmd.Context())
		if err != nil {
			return err
		}
		result["templates"] = stats
		a.out.Success(fmt.Sprintf("templates: %d inserted, %d updated, %d unchanged", stats.Inserted, stats.Updated, stats.Unchanged))

	case "recipes":
		stats, err := syncer.SyncRecipes(cmd.Context())
		if err != nil {
			return err
		}
		result["recipes"] = stats
		a.out.Success(fmt.Sprintf("recipes: %d inserted, %d updated, %d unchanged", stats.Inserted, stats.Updated, stats.Unchanged))

	case "transcripts":
		stats, err := syncer.SyncTranscripts(cmd.Context(), syncapi.TranscriptSyncOptions{
			Limit: f.limit, Since: since, Retry: f.retry, DelayMs: f.delayMs,
		})
		if err != nil {
			return err
		}
		result["transcripts"] = stats
		a.out.Success(fmt.Sprintf("transcripts: %d fetched, %d not found, %d errors (of %d attempted)", stats.Fetched, stats.NotFound, stats.Errors, stats.Attempted))

	case "panels":
		stats, err := syncer.SyncPanels(cmd.Context(), syncapi.PanelSyncOptions{
			Limit: f.limit, Since: since, Retry: f.retry, DelayMs: f.delayMs,
		})
		if err != nil {
			return err
		}
		result["panels"] = stats
		a.out.Success(fmt.Sprintf("panels: %d fetched, %d not found, %d errors (of %d attempted)", stats.Fetched, stats.NotFound, stats.Errors, stats.Attempted))

	case "all":
		report := syncer.SyncAll(cmd.Context())
		result["report"] = report
		reportSyncAllErrors(a, report)
		a.out.Success(fmt.Sprintf("documents: %d/%d/%d, people: %d/%d/%d, calendars: %d/%d/%d, templates: %d/%d/%d, recipes: %d/%d/%d (inserted/updated/unchanged)",
			report.Documents.Inserted, report.Documents.Updated, report.Documents.Unchanged,
			report.People.Inserted, report.People.Updated, report.People.Unchanged,
			report.CalendarEvents.Inserted, report.CalendarEvents.Updated, report.CalendarEvents.Unchanged,
			report.Templates.Inserted, report.Templates.Updated, report.Templates.Unchanged,
			report.Recipes.Inserted, report.Recipes.Updated, report.Recipes.Unchanged))

	default:
		a.out.Warning("unknown sync target " + kind + "; expected documents, transcripts, people, calendars, templates, recipes, panels, or omit for all")
	}

	if f.embed {
		embedder, err := buildEmbedder(cmd.Context(), a.cfg.Embeddings)
		if err != nil {
			return err
		}
		defer func() { _ = embedder.Close() }()
		stats, err := embed.EnsureEmbeddings(cmd.Context(), a.st, embedder, a.cfg.Store.Path, a.cfg.Embeddings.BatchSize)
		if err != nil {
			return err
		}
		if stats != nil {
			result["embedding"] = stats
			a.out.Success(fmt.Sprintf("embedded %d chunks in %.1fs", stats.ChunksEmbedded, stats.ElapsedSecs))
		}
	}

	return a.out.Emit(result, func() {})
}

func reportSyncAllErrors(a *app, report *syncapi.Report) {
	for name, err := range map[string]error{
		"documents": report.DocumentsErr, "people": report.PeopleErr,
		"calendars": report.CalendarsErr, "templates": report.TemplatesErr, "recipes": report.RecipesErr,
	} {
		if err != nil {
			a.out.Error(fmt.Sprintf("%s: %v", name, err))
		}
	}
}
