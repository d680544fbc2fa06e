package main

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"claimflow/internal/config"
	"claimflow/internal/decision"
	"claimflow/internal/handler"
	"claimflow/internal/pipeline"
	"claimflow/internal/port"
	"claimflow/internal/reasoner"
	_ "claimflow/internal/reasoner/claude"
	_ "claimflow/internal/reasoner/gemini"
	"claimflow/internal/repository/postgres"
	"claimflow/internal/router"
	"claimflow/internal/service"
	s3storage "claimflow/internal/storage/s3"
	"claimflow/internal/textract"
	"claimflow/internal/validator/claim"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Persistence is optional; without it runs are processed but not stored.
	var db *sqlx.DB
	var runRepo port.ClaimRunRepository
	if cfg.DB.Enabled {
		db, err = postgres.NewDB(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		runRepo = postgres.NewClaimRunRepo(db)
	}

	// Archival is optional; without a bucket originals are discarded after
	// processing.
	var storage port.ObjectStorage
	if cfg.S3.Bucket != "" {
		storage, err = s3storage.NewS3Client(&cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	}

	rsn, err := buildReasoner(&cfg.Reasoner)
	if err != nil {
		return fmt.Errorf("failed to initialize reasoning provider: %w", err)
	}

	// Pipeline wiring
	callTimeout := cfg.Pipeline.CallTimeout()
	retryBackoff := cfg.Pipeline.RetryBackoff()
	required := cfg.Pipeline.RequiredDocumentTypes()

	var advisor port.Reasoner
	if cfg.Pipeline.DecisionAssist {
		advisor = rsn
	}

	orchestrator := pipeline.NewOrchestrator(
		textract.NewExtractor(),
		pipeline.NewClassifier(rsn, callTimeout, retryBackoff),
		pipeline.NewExtractor(rsn, callTimeout, retryBackoff),
		claim.NewEngine(required),
		decision.NewEngine(required, cfg.Pipeline.ReviewThreshold, advisor),
		cfg.Pipeline.MaxConcurrency,
	)

	claimSvc := service.NewClaimService(orchestrator, runRepo, storage, cfg.S3.Bucket)

	claimH := handler.NewClaimHandler(claimSvc, cfg.Server.MaxUploadMB)
	healthH := handler.NewHealthHandler(db)

	r := router.Setup(cfg, claimH, healthH)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// buildReasoner assembles the primary provider, wrapped with the secondary
// in a fallback chain when one is configured.
func buildReasoner(cfg *config.ReasonerConfig) (port.Reasoner, error) {
	primary, err := reasoner.NewReasoner(&cfg.Primary)
	if err != nil {
		return nil, err
	}

	secondaryCfg := cfg.SecondaryConfig()
	if secondaryCfg == nil {
		return primary, nil
	}
	secondary, err := reasoner.NewReasoner(secondaryCfg)
	if err != nil {
		return nil, err
	}
	return reasoner.NewFallbackReasoner(
		[]port.Reasoner{primary, secondary},
		[]string{cfg.Primary.Provider, secondaryCfg.Provider},
	), nil
}
