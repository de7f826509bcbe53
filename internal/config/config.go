package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the namespace prefix for all environment variables.
const EnvPrefix = "PCA_"

// Config holds all application configuration. Secrets (API keys) are loaded
// exclusively from environment variables and never appear in the config file.
type Config struct {
	// Sentiment classification thresholds, both in (0, 1].
	MinSentimentPositive float64 `yaml:"min_sentiment_positive"`
	MinSentimentNegative float64 `yaml:"min_sentiment_negative"`

	// Entity detection.
	EntityConfidence     float64  `yaml:"entity_confidence"`
	EntityTypes          []string `yaml:"entity_types"`
	EntityFile           string   `yaml:"entity_file"`
	EntityDir            string   `yaml:"entity_dir"`
	CustomEntityEndpoint string   `yaml:"custom_entity_endpoint"`

	// Speaker display names in channel/index order.
	SpeakerNames []string `yaml:"speaker_names"`

	// Base language codes the NLP service has models for. The conversation
	// language is matched against these by prefix.
	NLPLanguages []string `yaml:"nlp_languages"`

	// Filename metadata parsing.
	FilenameDatetimeRegex    string `yaml:"filename_datetime_regex"`
	FilenameDatetimeFieldMap string `yaml:"filename_datetime_fieldmap"`
	FilenameGUIDRegex        string `yaml:"filename_guid_regex"`
	FilenameAgentRegex       string `yaml:"filename_agent_regex"`
	ConversationLocation     string `yaml:"conversation_location"`

	// NLP collaborator selection: "http" talks to a detection service,
	// "openai" uses the OpenAI chat API.
	NLPProvider  string `yaml:"nlp_provider"`
	SentimentURL string `yaml:"sentiment_url"`
	EntityURL    string `yaml:"entity_url"`
	OpenAIModel  string `yaml:"openai_model"`

	// Size of the NLP worker pool; 1 preserves strictly sequential calls.
	NLPWorkers int `yaml:"nlp_workers"`

	DBPath     string `yaml:"db_path"`
	OutputDir  string `yaml:"output_dir"`
	ListenAddr string `yaml:"listen_addr"`

	GDriveFolderID        string `yaml:"gdrive_folder_id"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`

	// Secrets — env vars only, never serialized to YAML.
	OpenAIAPIKey string `yaml:"-"`
	NLPAPIKey    string `yaml:"-"`
}

func defaults() Config {
	return Config{
		MinSentimentPositive:     0.4,
		MinSentimentNegative:     0.4,
		EntityConfidence:         0.5,
		EntityDir:                "data/entities",
		SpeakerNames:             []string{"Agent", "Caller"},
		NLPLanguages:             []string{"en", "es", "fr", "de", "it", "pt", "ar", "hi", "ja", "ko", "zh"},
		FilenameDatetimeRegex:    `(\d{2})\.(\d{2})\.(\d{2})\.(\d{3})-(\d{2})-(\d{2})-(\d{4})`,
		FilenameDatetimeFieldMap: "%H %M %S %f %m %d %Y",
		FilenameGUIDRegex:        `_GUID_(.*?)_`,
		FilenameAgentRegex:       `_AGENT_(.*?)_`,
		NLPProvider:              "http",
		OpenAIModel:              "gpt-4o-mini",
		NLPWorkers:               1,
		DBPath:                   "data/pca.db",
		OutputDir:                "data/parsed",
		ListenAddr:               "127.0.0.1:8970",
		GoogleCredentialsFile:    "./service-account.json",
	}
}

// Load reads configuration from a YAML file (if it exists), applies
// environment variable overrides, loads secrets, and validates the result.
// It returns the config, any validation warnings, and an error if the file
// exists but cannot be read or parsed.
func Load(path string) (Config, []string, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	loadSecrets(&cfg)

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

// SimpleEntitiesEnabled reports whether dictionary-based entity matching is
// configured. It is mutually exclusive with a custom entity model.
func (c *Config) SimpleEntitiesEnabled() bool {
	return c.CustomEntityEndpoint == "" && c.EntityFile != ""
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "MIN_SENTIMENT_POSITIVE"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			cfg.MinSentimentPositive = f
		}
	}
	if v := os.Getenv(EnvPrefix + "MIN_SENTIMENT_NEGATIVE"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			cfg.MinSentimentNegative = f
		}
	}
	if v := os.Getenv(EnvPrefix + "ENTITY_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			cfg.EntityConfidence = f
		}
	}
	if v := os.Getenv(EnvPrefix + "ENTITY_TYPES"); v != "" {
		cfg.EntityTypes = splitList(v)
	}
	if v := os.Getenv(EnvPrefix + "ENTITY_FILE"); v != "" {
		cfg.EntityFile = v
	}
	if v := os.Getenv(EnvPrefix + "ENTITY_DIR"); v != "" {
		cfg.EntityDir = v
	}
	if v := os.Getenv(EnvPrefix + "CUSTOM_ENTITY_ENDPOINT"); v != "" {
		cfg.CustomEntityEndpoint = v
	}
	if v := os.Getenv(EnvPrefix + "SPEAKER_NAMES"); v != "" {
		cfg.SpeakerNames = splitList(v)
	}
	if v := os.Getenv(EnvPrefix + "NLP_PROVIDER"); v != "" {
		cfg.NLPProvider = v
	}
	if v := os.Getenv(EnvPrefix + "SENTIMENT_URL"); v != "" {
		cfg.SentimentURL = v
	}
	if v := os.Getenv(EnvPrefix + "ENTITY_URL"); v != "" {
		cfg.EntityURL = v
	}
	if v := os.Getenv(EnvPrefix + "OPENAI_MODEL"); v != "" {
		cfg.OpenAIModel = v
	}
	if v := os.Getenv(EnvPrefix + "NLP_WORKERS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.NLPWorkers = n
		}
	}
	if v := os.Getenv(EnvPrefix + "DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvPrefix + "OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv(EnvPrefix + "LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(EnvPrefix + "GDRIVE_FOLDER_ID"); v != "" {
		cfg.GDriveFolderID = v
	}
	if v := os.Getenv(EnvPrefix + "GOOGLE_CREDENTIALS_FILE"); v != "" {
		cfg.GoogleCredentialsFile = v
	}
}

func loadSecrets(cfg *Config) {
	cfg.OpenAIAPIKey = os.Getenv(EnvPrefix + "OPENAI_API_KEY")
	cfg.NLPAPIKey = os.Getenv(EnvPrefix + "NLP_API_KEY")
}

func validate(cfg *Config) []string {
	var warnings []string

	if cfg.MinSentimentPositive <= 0 || cfg.MinSentimentPositive > 1 {
		warnings = append(warnings, fmt.Sprintf("Invalid min_sentiment_positive %.2f — using default 0.4.", cfg.MinSentimentPositive))
		cfg.MinSentimentPositive = 0.4
	}
	if cfg.MinSentimentNegative <= 0 || cfg.MinSentimentNegative > 1 {
		warnings = append(warnings, fmt.Sprintf("Invalid min_sentiment_negative %.2f — using default 0.4.", cfg.MinSentimentNegative))
		cfg.MinSentimentNegative = 0.4
	}

	switch cfg.NLPProvider {
	case "http":
		if cfg.SentimentURL == "" {
			warnings = append(warnings, "Sentiment service URL not configured — segments will receive neutral sentiment. Set "+EnvPrefix+"SENTIMENT_URL.")
		}
		if cfg.EntityURL == "" {
			warnings = append(warnings, "Entity service URL not configured — entity detection is disabled. Set "+EnvPrefix+"ENTITY_URL.")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			warnings = append(warnings, "OpenAI API key not configured — NLP enrichment is disabled. Set "+EnvPrefix+"OPENAI_API_KEY.")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown nlp_provider %q — using %q.", cfg.NLPProvider, "http"))
		cfg.NLPProvider = "http"
	}

	if cfg.CustomEntityEndpoint != "" && cfg.EntityFile != "" {
		warnings = append(warnings, "Both custom_entity_endpoint and entity_file are set — the dictionary file is ignored.")
	}

	return warnings
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}
