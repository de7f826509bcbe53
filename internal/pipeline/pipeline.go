package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/analytics"
	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/config"
	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/enrich"
	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/nlp"
	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/segment"
	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/transcript"
)

// timeFormat matches the timestamp layout used in existing output documents.
const timeFormat = "2006-01-02 15:04:05.000000"

// Pipeline processes one completed ASR job into an enriched conversation
// document: build segments for the job's mode, merge, enrich with sentiment
// and entities, then assemble the header.
type Pipeline struct {
	store     transcript.Store
	sentiment nlp.SentimentDetector
	entities  nlp.EntityDetector
	cfg       config.Config
	log       *logrus.Entry
	filenames *FilenameParser
	now       func() time.Time
}

// New wires a pipeline from its collaborators.
func New(store transcript.Store, sentiment nlp.SentimentDetector, entities nlp.EntityDetector, cfg config.Config, log *logrus.Entry) *Pipeline {
	return &Pipeline{
		store:     store,
		sentiment: sentiment,
		entities:  entities,
		cfg:       cfg,
		log:       log,
		filenames: NewFilenameParser(cfg, log),
		now:       time.Now,
	}
}

// Process runs the whole pipeline for one job name.
func (p *Pipeline) Process(ctx context.Context, jobName string) (*analytics.Document, error) {
	job, err := p.store.GetJobInfo(ctx, jobName)
	if err != nil {
		return nil, fmt.Errorf("job info for %s: %w", jobName, err)
	}

	result, err := p.store.FetchResult(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("fetch result for %s: %w", jobName, err)
	}

	builder := segment.NewBuilder()
	segments, err := p.build(builder, job, result)
	if err != nil {
		return nil, fmt.Errorf("build segments for %s: %w", jobName, err)
	}
	p.log.WithFields(logrus.Fields{
		"job":      jobName,
		"mode":     job.APIMode,
		"segments": len(segments),
		"words":    builder.WordsParsed(),
	}).Info("segments built")

	language := enrich.ResolveLanguage(job.LanguageCode, p.cfg.NLPLanguages)
	if language == "" {
		p.log.WithField("language", job.LanguageCode).Info("no NLP model for conversation language, skipping detection")
	}

	header := enrich.NewHeaderEntities()
	enricher := &enrich.Enricher{
		Sentiment:        p.sentiment,
		Entities:         p.entities,
		MinPositive:      p.cfg.MinSentimentPositive,
		MinNegative:      p.cfg.MinSentimentNegative,
		EntityConfidence: p.cfg.EntityConfidence,
		EntityTypes:      p.cfg.EntityTypes,
		CustomEndpoint:   p.cfg.CustomEntityEndpoint,
		Language:         language,
		Workers:          p.cfg.NLPWorkers,
	}
	if err := enricher.Enrich(ctx, job.APIMode, segments, header); err != nil {
		return nil, fmt.Errorf("enrich %s: %w", jobName, err)
	}

	recognizer := ""
	if p.cfg.CustomEntityEndpoint != "" && language == "en" {
		recognizer = p.cfg.CustomEntityEndpoint
	} else if p.cfg.SimpleEntitiesEnabled() {
		dict, err := enrich.LoadDictionary(p.cfg.EntityDir, p.cfg.EntityFile, language)
		if err != nil {
			return nil, fmt.Errorf("entity dictionary for %s: %w", jobName, err)
		}
		if dict != nil {
			dict.Apply(segments, header)
			recognizer = dict.Name
		}
	}

	return p.assemble(jobName, job, builder, segments, header, recognizer), nil
}

func (p *Pipeline) build(builder *segment.Builder, job transcript.JobInfo, result *transcript.Result) ([]*segment.Segment, error) {
	switch {
	case job.APIMode == transcript.ModeAnalytics:
		if result.Analytics == nil {
			return nil, fmt.Errorf("analytics job carries no analytics payload")
		}
		return builder.BuildAnalytics(result.Analytics, job.ChannelDefinitions)
	case job.Settings.ChannelIdentification:
		if result.Standard == nil {
			return nil, fmt.Errorf("standard job carries no transcript payload")
		}
		return builder.BuildChannel(result.Standard)
	default:
		if result.Standard == nil {
			return nil, fmt.Errorf("standard job carries no transcript payload")
		}
		return builder.BuildSpeaker(result.Standard)
	}
}

func (p *Pipeline) assemble(jobName string, job transcript.JobInfo, builder *segment.Builder, segments []*segment.Segment, header *enrich.HeaderEntities, recognizer string) *analytics.Document {
	meta := p.filenames.Parse(jobName)
	processTime := p.now()

	conversationTime := meta.ConversationTime
	if !meta.TimeParsed {
		conversationTime = processTime
	}

	var speakers []analytics.SpeakerLabel
	if job.APIMode == transcript.ModeAnalytics {
		speakers = analytics.AnalyticsSpeakerLabels(builder.ChannelMap())
	} else {
		speakers = analytics.StandardSpeakerLabels(builder.MaxSpeakerIndex(), p.cfg.SpeakerNames)
	}

	doc := &analytics.Document{
		ConversationAnalytics: analytics.ConversationAnalytics{
			GUID:                 meta.GUID,
			Agent:                meta.Agent,
			ConversationTime:     conversationTime.Format(timeFormat),
			ConversationLocation: meta.Location,
			ProcessTime:          processTime.Format(timeFormat),
			LanguageCode:         job.LanguageCode,
			Duration:             analytics.Duration(segments),
			SpeakerLabels:        speakers,
			SentimentTrends:      analytics.Trends(segments, speakers, p.cfg.MinSentimentPositive, p.cfg.MinSentimentNegative),
			CustomEntities:       analytics.EntitySummaries(header),
			EntityRecognizerName: recognizer,
			SourceInformation:    []analytics.SourceInformation{analytics.JobInfoBlock(job, builder.AverageAccuracy())},
		},
		SpeechSegments: analytics.FromSegments(segments),
	}
	return doc
}
