// src/pipeline/orchestrator.go
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/username/salesclaro/src/analytics"
	"github.com/username/salesclaro/src/enrichment"
	"github.com/username/salesclaro/src/logger"
	"github.com/username/salesclaro/src/models"
	"github.com/username/salesclaro/src/parsers"
	"github.com/username/salesclaro/src/validation"
)

// EnrichmentSummary reports how the category lookups for one run went.
type EnrichmentSummary struct {
	DistinctProducts int     `json:"distinct_products"`
	Enriched         int     `json:"enriched"`
	NotFound         int     `json:"not_found"`
	LookupFailed     int     `json:"lookup_failed"`
	Skipped          int     `json:"skipped"`
	SuccessRate      float64 `json:"success_rate_percent"`
}

// Result is the full outcome of one pipeline run, handed to the report and
// file-writing collaborators.
type Result struct {
	RunID       string                  `json:"run_id"`
	RefDate     time.Time               `json:"reference_date"`
	LinesRead   int                     `json:"lines_read"`
	BlankLines  int                     `json:"blank_lines"`
	Parsed      int                     `json:"parsed"`
	Accepted    int                     `json:"accepted"`
	FilteredOut int                     `json:"filtered_out"`
	Records     []models.EnrichedRecord `json:"records"`
	Metrics     models.MetricsSnapshot  `json:"metrics"`
	Rejected    []models.RejectedLine   `json:"rejected"`
	Enrichment  EnrichmentSummary       `json:"enrichment"`
	Duration    time.Duration           `json:"duration_ns"`
}

// Orchestrator sequences parsing, validation, analytics and enrichment for
// one input feed. Individual record failures never abort a run; the only
// fatal condition is the reading collaborator failing upstream.
type Orchestrator struct {
	parser        parsers.LineParser
	catalog       enrichment.CatalogClient
	fanout        int
	validatorOpts validation.Options
}

func NewOrchestrator(parser parsers.LineParser, catalog enrichment.CatalogClient,
	fanout int, validatorOpts validation.Options) *Orchestrator {
	if fanout < 1 {
		fanout = 1
	}
	return &Orchestrator{
		parser:        parser,
		catalog:       catalog,
		fanout:        fanout,
		validatorOpts: validatorOpts,
	}
}

// Run executes the pipeline over the given feed lines. Filters narrow the
// accepted set before analytics and enrichment; absence of a filter means no
// narrowing on that dimension. The returned record sequence preserves the
// accepted-record order regardless of lookup completion order.
func (o *Orchestrator) Run(ctx context.Context, lines []models.RawLine,
	refDate time.Time, filters models.FilterOptions) (*Result, error) {
	start := time.Now()
	result := &Result{
		RunID:    uuid.NewString(),
		RefDate:  refDate,
		Records:  []models.EnrichedRecord{},
		Rejected: []models.RejectedLine{},
	}
	logger.L.Info("Pipeline run START", "runID", result.RunID, "lines", len(lines))

	// Parsing.
	candidates := make([]*models.CandidateRecord, 0, len(lines))
	for _, line := range lines {
		result.LinesRead++
		candidate := o.parser.Parse(line)
		if candidate == nil {
			result.BlankLines++
			continue
		}
		candidates = append(candidates, candidate)
	}
	result.Parsed = len(candidates)

	// Validating. A fresh validator per run owns the seen-id set.
	validator := validation.NewValidator(refDate, o.validatorOpts)
	accepted := make([]models.SaleRecord, 0, len(candidates))
	for _, candidate := range candidates {
		vr := validator.Validate(candidate)
		if !vr.Accepted {
			result.Rejected = append(result.Rejected, models.RejectedLine{Line: vr.Line, Reason: vr.Reason})
			continue
		}
		accepted = append(accepted, *vr.Record)
	}
	result.Accepted = len(accepted)

	// Optional run-time filters.
	working := accepted
	if filters != (models.FilterOptions{}) {
		working = make([]models.SaleRecord, 0, len(accepted))
		for i := range accepted {
			if filters.Matches(&accepted[i]) {
				working = append(working, accepted[i])
			}
		}
		result.FilteredOut = len(accepted) - len(working)
	}

	// Analytics and enrichment run independently over the same set.
	var outcomes map[string]enrichment.Outcome
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result.Metrics = analytics.Analyze(working)
		return nil
	})
	g.Go(func() error {
		outcomes = o.lookupAll(gctx, working)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merging, in validator output order.
	result.Records = make([]models.EnrichedRecord, 0, len(working))
	for i := range working {
		enriched := mergeOutcome(working[i], outcomes)
		result.Records = append(result.Records, enriched)
		switch enriched.Status {
		case models.StatusEnriched:
			result.Enrichment.Enriched++
		case models.StatusNotFound:
			result.Enrichment.NotFound++
		case models.StatusLookupFailed:
			result.Enrichment.LookupFailed++
		case models.StatusSkipped:
			result.Enrichment.Skipped++
		}
	}
	result.Enrichment.DistinctProducts = len(outcomes)
	if len(result.Records) > 0 {
		result.Enrichment.SuccessRate = float64(result.Enrichment.Enriched) / float64(len(result.Records)) * 100
	}

	result.Duration = time.Since(start)
	logger.L.Info("Pipeline run END",
		"runID", result.RunID,
		"accepted", result.Accepted,
		"rejected", len(result.Rejected),
		"filteredOut", result.FilteredOut,
		"enriched", result.Enrichment.Enriched,
		"duration", result.Duration)
	return result, nil
}

// lookupAll resolves categories for every distinct product id in the set,
// bounded by the configured fan-out. Outcomes land in a map keyed by product
// id so completion order never affects record order.
func (o *Orchestrator) lookupAll(ctx context.Context, records []models.SaleRecord) map[string]enrichment.Outcome {
	distinct := make([]string, 0)
	seen := make(map[string]struct{})
	for i := range records {
		pid := records[i].ProductID
		if _, ok := seen[pid]; ok {
			continue
		}
		seen[pid] = struct{}{}
		distinct = append(distinct, pid)
	}

	outcomes := make(map[string]enrichment.Outcome, len(distinct))
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(o.fanout)
	for _, pid := range distinct {
		pid := pid
		g.Go(func() error {
			if ctx.Err() != nil {
				// Run cancelled: leave the id unresolved so the
				// record surfaces as Skipped.
				return nil
			}
			outcome := o.catalog.Lookup(ctx, pid)
			mu.Lock()
			outcomes[pid] = outcome
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return outcomes
}

func mergeOutcome(record models.SaleRecord, outcomes map[string]enrichment.Outcome) models.EnrichedRecord {
	enriched := models.EnrichedRecord{SaleRecord: record, Status: models.StatusSkipped}
	outcome, ok := outcomes[record.ProductID]
	if !ok {
		return enriched
	}
	switch outcome.Status {
	case enrichment.StatusFound:
		enriched.Category = outcome.Category
		enriched.Status = models.StatusEnriched
	case enrichment.StatusNotFound:
		enriched.Status = models.StatusNotFound
	case enrichment.StatusFailed:
		if errors.Is(outcome.Err, context.Canceled) || errors.Is(outcome.Err, context.DeadlineExceeded) {
			// The lookup never completed on its own terms.
			enriched.Status = models.StatusSkipped
		} else {
			enriched.Status = models.StatusLookupFailed
		}
	}
	return enriched
}
