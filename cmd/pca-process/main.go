package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/config"
	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/gdrive"
	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/logger"
	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/nlp"
	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/pipeline"
	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/server"
	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/storage"
	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/transcript"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "config.yaml", "path to the YAML config file")
		jobsDir    = flag.String("jobs-dir", "data/jobs", "directory holding completed job result files")
		serve      = flag.Bool("serve", false, "start the conversation API after processing")
	)
	flag.Parse()

	log := logger.New().WithRun(uuid.NewString())

	cfg, warnings, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	for _, w := range warnings {
		log.Warn(w)
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("open conversation index")
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	writer := storage.NewWriter(cfg.OutputDir)
	sentiment, entities := buildDetectors(cfg)
	jobStore := transcript.NewFileStore(*jobsDir)
	pipe := pipeline.New(jobStore, sentiment, entities, cfg, log)

	var syncer *gdrive.Syncer
	if cfg.GDriveFolderID != "" {
		syncer, err = gdrive.NewSyncer(ctx, cfg.GoogleCredentialsFile, cfg.GDriveFolderID)
		if err != nil {
			log.WithError(err).Warn("drive sync disabled")
			syncer = nil
		}
	}

	for _, jobName := range flag.Args() {
		if ctx.Err() != nil {
			break
		}
		if err := processJob(ctx, jobName, pipe, writer, store, syncer, log); err != nil {
			log.WithError(err).WithField("job", jobName).Error("processing failed")
		}
	}

	if *serve {
		if err := server.Serve(cfg.ListenAddr, store, log); err != nil {
			log.WithError(err).Fatal("conversation API stopped")
		}
	}
}

func processJob(ctx context.Context, jobName string, pipe *pipeline.Pipeline, writer *storage.Writer, store *storage.SQLiteStore, syncer *gdrive.Syncer, log *logrus.Entry) error {
	started := time.Now()

	doc, err := pipe.Process(ctx, jobName)
	if err != nil {
		return err
	}

	path, err := writer.Write(jobName, doc)
	if err != nil {
		return err
	}

	header := doc.ConversationAnalytics
	if err := store.UpsertConversation(storage.Conversation{
		JobName:      jobName,
		GUID:         header.GUID,
		Agent:        header.Agent,
		LanguageCode: header.LanguageCode,
		Duration:     header.Duration,
		ProcessedAt:  time.Now().UTC(),
		DocumentPath: path,
	}); err != nil {
		return err
	}

	// Drive sync is best-effort; a failed upload never fails the job.
	if syncer != nil {
		if err := syncer.Sync(path, jobName); err != nil {
			log.WithError(err).WithField("job", jobName).Warn("drive sync failed")
		}
	}

	log.WithFields(logrus.Fields{
		"job":      jobName,
		"segments": len(doc.SpeechSegments),
		"duration": header.Duration,
		"elapsed":  time.Since(started).Round(time.Millisecond),
	}).Info("conversation processed")
	return nil
}

func buildDetectors(cfg config.Config) (nlp.SentimentDetector, nlp.EntityDetector) {
	switch cfg.NLPProvider {
	case "openai":
		client := nlp.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		return nlp.RetrySentiment{Inner: client}, nlp.RetryEntities{Inner: client}
	default:
		client := nlp.NewHTTPClient(cfg.SentimentURL, cfg.EntityURL, cfg.NLPAPIKey)
		return nlp.RetrySentiment{Inner: client}, nlp.RetryEntities{Inner: client}
	}
}
