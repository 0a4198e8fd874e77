package analysis

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/haidarlabs/qanuni-gateway/internal/i18n"
	"github.com/haidarlabs/qanuni-gateway/internal/language"
	obsmetrics "github.com/haidarlabs/qanuni-gateway/internal/observability/metrics"
	"github.com/haidarlabs/qanuni-gateway/internal/session"
	"github.com/haidarlabs/qanuni-gateway/pkg/logging"
)

var analysisTracer = otel.Tracer("qanuni.internal.analysis.orchestrator")

// MediaFetcher retrieves an attachment payload from the channel provider.
type MediaFetcher interface {
	Fetch(ctx context.Context, mediaURL string) ([]byte, string, error)
}

// RecordWriter persists analysis records. Optional; a nil writer skips
// persistence.
type RecordWriter interface {
	InsertRecord(ctx context.Context, rec Record) error
}

// Orchestrator coordinates the document-analysis pipeline: media fetch ->
// extraction -> risk analysis -> persistence -> formatted reply. Analyze is
// total: every failure path resolves to a locale-appropriate reply string.
type Orchestrator struct {
	model        ModelClient
	fetcher      MediaFetcher
	records      RecordWriter
	jurisdiction string
	logger       *logging.Logger
	metrics      *obsmetrics.GatewayMetrics
}

// Config collects orchestrator dependencies. Model may be nil when the AI
// capability is unconfigured; Analyze then short-circuits to an
// "unavailable" reply.
type Config struct {
	Model        ModelClient
	Fetcher      MediaFetcher
	Records      RecordWriter
	Jurisdiction string
	Logger       *logging.Logger
	Metrics      *obsmetrics.GatewayMetrics
}

func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.Fetcher == nil {
		panic("analysis: media fetcher required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if strings.TrimSpace(cfg.Jurisdiction) == "" {
		cfg.Jurisdiction = "UAE"
	}
	return &Orchestrator{
		model:        cfg.Model,
		fetcher:      cfg.Fetcher,
		records:      cfg.Records,
		jurisdiction: cfg.Jurisdiction,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}
}

// Analyze runs the pipeline for one attachment and returns the user-facing
// reply. It never returns an error and never panics outward.
func (o *Orchestrator) Analyze(ctx context.Context, sess *session.Session, mediaURL, contentType, caption string) (reply string) {
	loc := sess.Locale.OrDefault()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("analysis panicked", "recover", r, "session_id", sess.ID)
			o.metrics.ObserveAnalysis("pipeline", "panic")
			reply = i18n.T(i18n.KeyAnalysisFailed, loc)
		}
	}()

	ctx, span := analysisTracer.Start(ctx, "analysis.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("qanuni.session_id", sess.ID.String()),
		attribute.String("qanuni.media_type", contentType),
	)

	if o.model == nil {
		o.metrics.ObserveAnalysis("capability", "unconfigured")
		return i18n.T(i18n.KeyAnalysisUnavailable, loc)
	}

	payload, fetchedType, err := o.fetcher.Fetch(ctx, mediaURL)
	if err != nil {
		o.logger.Warn("media fetch failed", "error", err, "session_id", sess.ID)
		o.metrics.ObserveAnalysis("fetch", "error")
		span.RecordError(err)
		return i18n.T(i18n.KeyAnalysisFetchFailed, loc)
	}
	if fetchedType != "" {
		contentType = fetchedType
	}

	docType := InferDocumentType(caption)

	extraction, err := o.extract(ctx, payload, contentType, docType)
	if err != nil {
		o.logger.Warn("extraction failed", "error", err, "session_id", sess.ID)
		o.metrics.ObserveAnalysis("extract", "error")
		span.RecordError(err)
		return i18n.T(i18n.KeyAnalysisFailed, loc)
	}

	assessment, err := o.assessRisk(ctx, extraction, loc)
	if err != nil {
		o.logger.Warn("risk analysis failed", "error", err, "session_id", sess.ID)
		o.metrics.ObserveAnalysis("risk", "error")
		span.RecordError(err)
		return i18n.T(i18n.KeyAnalysisFailed, loc)
	}

	if o.records != nil {
		rec := Record{
			SessionID:    sess.ID,
			DocumentType: docType,
			RiskScore:    assessment.Score,
			Findings:     assessment,
		}
		if err := o.records.InsertRecord(ctx, rec); err != nil {
			// The user still gets their analysis.
			o.logger.Error("failed to persist analysis record", "error", err, "session_id", sess.ID)
			o.metrics.ObserveAnalysis("persist", "error")
		}
	}

	o.metrics.ObserveAnalysis("pipeline", "ok")
	return formatReport(loc, assessment)
}

// extract invokes the extraction call. A malformed model response degrades
// to the unstructured variant rather than an error.
func (o *Orchestrator) extract(ctx context.Context, payload []byte, contentType string, docType DocumentType) (Extraction, error) {
	encoded := base64.StdEncoding.EncodeToString(payload)
	req := GenerateRequest{
		System: "You are a legal document analyst. Extract the key facts from the supplied document and respond with a single JSON object.",
		Prompt: fmt.Sprintf(
			"Document category: %s\nContent type: %s\nDocument (base64):\n%s\n\nExtract parties, dates, obligations, amounts and any notable clauses as JSON.",
			docType, contentType, encoded,
		),
		MaxTokens: 2048,
	}
	text, err := o.model.Generate(ctx, req)
	if err != nil {
		return Extraction{}, err
	}
	return parseExtraction(text), nil
}

// assessRisk invokes the risk call with the extracted content. An
// unparseable response synthesizes a minimal result (never an error).
func (o *Orchestrator) assessRisk(ctx context.Context, extraction Extraction, loc language.Locale) (RiskAssessment, error) {
	req := GenerateRequest{
		System: fmt.Sprintf(
			"You are a legal risk assessor for the %s jurisdiction. Respond with a single JSON object: {\"risk_score\": 0-100, \"summary\": string, \"findings\": [string], \"recommendations\": [string]}. Write summary, findings and recommendations in the %q language.",
			o.jurisdiction, string(loc),
		),
		Prompt:    "Extracted document content:\n" + extraction.AsText(),
		MaxTokens: 1024,
	}
	text, err := o.model.Generate(ctx, req)
	if err != nil {
		return RiskAssessment{}, err
	}
	return parseRiskAssessment(text), nil
}

// formatReport renders the locale-specific summary: band, score, narrative,
// then up to three findings and three recommendations when present.
func formatReport(loc language.Locale, assessment RiskAssessment) string {
	band := BandFor(assessment.Score)

	var b strings.Builder
	b.WriteString(i18n.T(i18n.KeyReportHeader, loc))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s: %s (%d/100)", i18n.T(i18n.KeyRiskScoreLabel, loc), i18n.T(band.labelKey(), loc), assessment.Score))

	if summary := strings.TrimSpace(assessment.Summary); summary != "" {
		b.WriteString("\n\n")
		b.WriteString(summary)
	}
	writeList(&b, i18n.T(i18n.KeyFindingsLabel, loc), assessment.Findings, maxReportedFindings)
	writeList(&b, i18n.T(i18n.KeyRecommendationsLabel, loc), assessment.Recommendations, maxReportedSuggestions)

	return b.String()
}

func writeList(b *strings.Builder, label string, items []string, limit int) {
	wrote := 0
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if wrote == 0 {
			b.WriteString("\n\n")
			b.WriteString(label)
			b.WriteString(":")
		}
		b.WriteString("\n- ")
		b.WriteString(item)
		wrote++
		if wrote == limit {
			break
		}
	}
}
