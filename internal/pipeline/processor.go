// Package pipeline runs the staged research flow: market data collection,
// local document insights, case analysis, and report generation. Stages are
// sequential and data-dependent; each one owns a bounded retry budget and
// reports progress through a Sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/maclay/research-assistant/backend/internal/docs"
	"github.com/maclay/research-assistant/backend/internal/extract"
	"github.com/maclay/research-assistant/backend/internal/links"
	"github.com/maclay/research-assistant/backend/internal/llm"
	"github.com/maclay/research-assistant/backend/internal/models"
	"github.com/maclay/research-assistant/backend/internal/retry"
)

const stageAttempts = 3

// Processor orchestrates one research run end to end.
type Processor struct {
	model    llm.Client
	source   docs.Source
	checker  *links.Checker
	enhancer *links.Enhancer
	sink     Sink
	logger   *zap.Logger

	// stageDelay is the base backoff between stage attempts; shortened in
	// tests.
	stageDelay time.Duration
}

func NewProcessor(model llm.Client, source docs.Source, checker *links.Checker, enhancer *links.Enhancer, sink Sink, logger *zap.Logger) *Processor {
	return &Processor{
		model:      model,
		source:     source,
		checker:    checker,
		enhancer:   enhancer,
		sink:       sink,
		logger:     logger,
		stageDelay: time.Second,
	}
}

// ProcessResearch runs all stages in order and resolves to a single result.
// A failed stage (after retries) halts the pipeline, except the local
// documents stage, which only enriches the report and degrades to empty
// insights. The returned artifacts capture every intermediate output for
// persistence regardless of outcome.
func (p *Processor) ProcessResearch(ctx context.Context, req models.ResearchRequest) (*models.Result, *models.RunArtifacts) {
	art := &models.RunArtifacts{Request: req, CreatedAt: time.Now()}

	market, err := runStage(ctx, p, models.StageDataCollection, func(ctx context.Context) (*models.MarketData, error) {
		return p.collectMarketData(ctx, req)
	})
	if err != nil {
		return p.fail(models.StageDataCollection, err, art)
	}
	art.Market = market

	insights, err := runStage(ctx, p, models.StageLocalDocuments, func(ctx context.Context) (*models.LocalInsights, error) {
		return p.collectLocalInsights(ctx, req)
	})
	if err != nil {
		// Informational enrichment only: degrade rather than halt.
		p.sink.Notify(models.StageLocalDocuments, models.StageError, 0, err.Error())
		p.logger.Warn("local documents stage degraded", zap.Error(err))
		insights = &models.LocalInsights{}
	}
	art.Insights = insights

	cases, err := runStage(ctx, p, models.StageCaseAnalysis, func(ctx context.Context) ([]models.Case, error) {
		return p.analyzeCases(ctx, market, req)
	})
	if err != nil {
		return p.fail(models.StageCaseAnalysis, err, art)
	}
	art.Cases = cases

	report, err := runStage(ctx, p, models.StageReportGeneration, func(ctx context.Context) (string, error) {
		return p.generateReport(ctx, cases, insights.Insights, req)
	})
	if err != nil {
		return p.fail(models.StageReportGeneration, err, art)
	}

	art.Succeeded = true
	return &models.Result{Success: true, Report: report}, art
}

// runStage wraps a stage function with the shared retry policy: three
// attempts, 2^n second waits, and a progress update announcing each retry.
// Exhaustion surfaces as an error for the caller to turn into a structured
// failure; it is never propagated as a panic.
func runStage[T any](ctx context.Context, p *Processor, stage string, fn func(context.Context) (T, error)) (T, error) {
	return retry.Do(ctx, retry.Config{
		MaxAttempts: stageAttempts,
		BaseDelay:   p.stageDelay,
		OnRetry: func(attempt int, err error) {
			p.sink.Notify(stage, models.StageActive, 0,
				fmt.Sprintf("Retry attempt %d/%d...", attempt, stageAttempts))
			p.logger.Warn("retrying stage",
				zap.String("stage", stage), zap.Int("attempt", attempt), zap.Error(err))
		},
	}, fn)
}

func (p *Processor) fail(stage string, err error, art *models.RunArtifacts) (*models.Result, *models.RunArtifacts) {
	p.sink.Notify(stage, models.StageError, 0, err.Error())
	p.logger.Error("pipeline halted", zap.String("stage", stage), zap.Error(err))
	art.Error = err.Error()
	return &models.Result{Success: false, Error: err.Error()}, art
}

// collectMarketData is stage 1: prompt the model for companies using the
// researched feature (or matching the product profile) and parse the answer.
func (p *Processor) collectMarketData(ctx context.Context, req models.ResearchRequest) (*models.MarketData, error) {
	p.sink.Notify(models.StageDataCollection, models.StageActive, 10, "Preparing request...")
	prompt := dataCollectionPrompt(req)

	p.sink.Notify(models.StageDataCollection, models.StageActive, 30, "Sending request to the model...")
	content, err := p.model.Generate(ctx, prompt, 0.7, 2048)
	if err != nil {
		p.sink.Notify(models.StageDataCollection, models.StageError, 0, "API error: "+err.Error())
		return nil, fmt.Errorf("data collection: %w", err)
	}

	p.sink.Notify(models.StageDataCollection, models.StageActive, 70, "Processing response...")
	p.sink.Notify(models.StageDataCollection, models.StageActive, 90, "Structuring data...")

	companies := extract.Companies(content)
	market := &models.MarketData{
		RawContent: content,
		Companies:  companies,
		Kind:       req.Kind,
		Timestamp:  time.Now(),
		TotalFound: len(companies),
	}

	p.sink.Notify(models.StageDataCollection, models.StageCompleted, 100,
		fmt.Sprintf("Found %d companies", len(companies)))
	return market, nil
}

// collectLocalInsights is stage 2: read the local reference documents and
// ask the model for structured facts. Every failure path degrades to an
// empty insight list; this stage never returns an error.
func (p *Processor) collectLocalInsights(ctx context.Context, req models.ResearchRequest) (*models.LocalInsights, error) {
	p.sink.Notify(models.StageLocalDocuments, models.StageActive, 5, "Scanning local documents...")

	names, err := p.source.List()
	if err != nil || len(names) == 0 {
		if err != nil {
			p.logger.Warn("local documents unavailable", zap.Error(err))
		}
		p.sink.Notify(models.StageLocalDocuments, models.StageCompleted, 100, "No local documents available")
		return &models.LocalInsights{Files: []string{}}, nil
	}

	documents := make([]docs.Document, 0, len(names))
	files := make([]string, 0, len(names))
	for i, name := range names {
		progress := 10 + i*40/len(names) // 10-50%
		p.sink.Notify(models.StageLocalDocuments, models.StageActive, progress,
			fmt.Sprintf("Processing document %d/%d", i+1, len(names)))

		doc, err := p.source.Read(name)
		if err != nil {
			p.logger.Warn("document read failed, skipping", zap.String("file", name), zap.Error(err))
			doc = docs.Document{Name: name}
		}
		documents = append(documents, doc)
		files = append(files, name)
	}

	p.sink.Notify(models.StageLocalDocuments, models.StageActive, 55,
		fmt.Sprintf("Text extracted from %d documents", len(documents)))

	prompt := localDocumentsPrompt(documents, req)
	p.sink.Notify(models.StageLocalDocuments, models.StageActive, 70, "Sending request to the model...")

	content, err := p.model.Generate(ctx, prompt, 0.2, 1024)
	if err != nil {
		p.sink.Notify(models.StageLocalDocuments, models.StageError, 0, "API error: "+err.Error())
		return &models.LocalInsights{Files: files}, nil
	}

	p.sink.Notify(models.StageLocalDocuments, models.StageActive, 90, "Extracting structured insights...")
	insights, tier := extract.Insights(content)
	if tier == extract.TierLines {
		p.logger.Info("insight JSON parse failed, used line fallback", zap.Int("insights", len(insights)))
	}

	p.sink.Notify(models.StageLocalDocuments, models.StageCompleted, 100,
		fmt.Sprintf("Found %d insights in %d documents", len(insights), len(documents)))
	return &models.LocalInsights{Insights: insights, Files: files}, nil
}

// analyzeCases is stage 3: turn market data into numbered case studies and
// verify every link the cases cite.
func (p *Processor) analyzeCases(ctx context.Context, market *models.MarketData, req models.ResearchRequest) ([]models.Case, error) {
	p.sink.Notify(models.StageCaseAnalysis, models.StageActive, 10, "Preparing case analysis...")
	prompt := caseAnalysisPrompt(market, req)

	p.sink.Notify(models.StageCaseAnalysis, models.StageActive, 30, "Sending analysis request...")
	content, err := p.model.Generate(ctx, prompt, 0.5, 2048)
	if err != nil {
		p.sink.Notify(models.StageCaseAnalysis, models.StageError, 0, "API error: "+err.Error())
		return nil, fmt.Errorf("case analysis: %w", err)
	}

	p.sink.Notify(models.StageCaseAnalysis, models.StageActive, 70, "Processing analysis results...")
	p.sink.Notify(models.StageCaseAnalysis, models.StageActive, 90, "Structuring cases...")
	cases := extract.Cases(content)

	p.sink.Notify(models.StageCaseAnalysis, models.StageActive, 95, "Verifying case links...")
	p.checker.VerifyCases(ctx, cases)

	p.sink.Notify(models.StageCaseAnalysis, models.StageCompleted, 100,
		fmt.Sprintf("Analyzed %d cases", len(cases)))
	return cases, nil
}

// errEmptyReport makes an empty model answer retryable instead of shipping a
// blank report.
var errEmptyReport = errors.New("model returned an empty report")

// generateReport is stage 4: synthesize the final report, then run the link
// enhancement and verification passes and append the verification summary.
func (p *Processor) generateReport(ctx context.Context, cases []models.Case, insights []models.Insight, req models.ResearchRequest) (string, error) {
	p.sink.Notify(models.StageReportGeneration, models.StageActive, 10, "Preparing report data...")
	prompt := reportPrompt(cases, insights, req)

	p.sink.Notify(models.StageReportGeneration, models.StageActive, 30, "Sending report request...")
	content, err := p.model.Generate(ctx, prompt, 0.3, 4096)
	if err != nil {
		p.sink.Notify(models.StageReportGeneration, models.StageError, 0, "API error: "+err.Error())
		return "", fmt.Errorf("report generation: %w", err)
	}
	if content == "" {
		return "", errEmptyReport
	}

	p.sink.Notify(models.StageReportGeneration, models.StageActive, 70, "Processing response...")
	p.sink.Notify(models.StageReportGeneration, models.StageActive, 90, "Formatting report...")

	p.sink.Notify(models.StageReportGeneration, models.StageActive, 95, "Adding source links...")
	enhanced := p.enhancer.Enhance(ctx, content, cases)
	enhanced = links.CleanReportContent(enhanced)

	verified, stats := p.checker.VerifyReport(ctx, enhanced)
	report := verified + links.Summary(stats)

	p.sink.Notify(models.StageReportGeneration, models.StageCompleted, 100,
		fmt.Sprintf("Report ready (%d characters)", len(report)))
	return report, nil
}
