package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joelkehle/patent-scout/internal/config"
	"github.com/joelkehle/patent-scout/internal/enrich"
	"github.com/joelkehle/patent-scout/internal/history"
	"github.com/joelkehle/patent-scout/internal/httpapi"
	"github.com/joelkehle/patent-scout/internal/patentapi"
	"github.com/joelkehle/patent-scout/internal/report"
	"github.com/joelkehle/patent-scout/internal/search"
	"github.com/joelkehle/patent-scout/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "patent-scout", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = shutdownTracing(shutdownCtx)
	}()

	// Either credential may be absent: searches then fail with a
	// configuration error (upstream) or degrade to placeholder
	// enrichment (AI) instead of crashing the process.
	var upstream search.Upstream
	if client, err := patentapi.NewClient(patentapi.Config{
		APIKey:      cfg.PatentsViewKey,
		BaseURL:     cfg.UpstreamBaseURL,
		SimpleQuery: cfg.SimpleQuery,
	}); err != nil {
		log.Printf("startup upstream_disabled reason=%q", err.Error())
	} else {
		upstream = client
	}

	var caller enrich.Caller
	if c, err := enrich.NewAnthropicCaller(cfg.AnthropicKey, cfg.Model); err != nil {
		log.Printf("startup ai_disabled reason=%q", err.Error())
	} else {
		caller = c
	}
	analyzer, err := enrich.NewAnalyzer(caller, cfg.CacheSize)
	if err != nil {
		log.Fatal(err)
	}

	var recorder search.Recorder
	var reader httpapi.HistoryReader
	if cfg.DBPath != "" {
		store, err := history.NewStore(cfg.DBPath)
		if err != nil {
			log.Fatal(err)
		}
		defer store.Close()
		recorder = store
		reader = store
	}

	policy := search.Policy{
		EnrichLimit:        cfg.EnrichLimit,
		EmptyResultStatus:  cfg.EmptyStatus,
		Landscape:          cfg.Landscape,
		StructuredInsights: cfg.Insights,
	}
	orchestrator := search.NewOrchestrator(upstream, analyzer, recorder, policy)

	pdf := report.NewPDFRenderer()
	handler := httpapi.NewServer(httpapi.Deps{
		Orchestrator: orchestrator,
		Upstream:     upstream,
		AIConfigured: analyzer.Configured(),
		History:      reader,
		PDF:          pdf,
		RateRPS:      cfg.RateRPS,
		RateBurst:    cfg.RateBurst,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Search plus enrichment can legitimately take most of a minute.
		WriteTimeout: 90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("starting patent-scout port=%d upstream=%t ai=%t history=%t pdf=%t",
		cfg.Port, upstream != nil, analyzer.Configured(), recorder != nil, pdf.Available())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
