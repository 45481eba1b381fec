package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store kinds accepted in ARTIFACT_STORE.
const (
	StoreFS     = "fs"
	StoreBadger = "badger"
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Artifacts locates the vectorizer/classifier pair bound at startup.
type Artifacts struct {
	Store         string
	Dir           string
	BadgerPath    string
	VectorizerRef string
	ClassifierRef string
	LoadTimeout   time.Duration
}

// Inference tunes batch prediction.
type Inference struct {
	Workers       int
	MaxTextLength int
	Language      string
}

// Worker holds configuration for the Kafka -> Elasticsearch scoring worker.
type Worker struct {
	Common
	Artifacts
	Inference
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaConsumer  string
	KafkaDLQTopic  string
	DedupeCapacity int
	DedupeTTL      time.Duration
	BatchSize      int
	CommitInterval time.Duration
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	Artifacts
	Inference
	BindAddr      string
	MaxBatch      int
	WordcloudSize int
	DefaultPage   int
	MaxPage       int
}

// Retention configures the cleanup loop.
type Retention struct {
	Common
	Interval time.Duration
	MaxAge   time.Duration
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "comments"),
	}
}

// LoadArtifacts reads the artifact location shared by api, worker and ctl.
func LoadArtifacts() (Artifacts, error) {
	a := Artifacts{
		Store:         strings.ToLower(getEnv("ARTIFACT_STORE", StoreFS)),
		Dir:           getEnv("ARTIFACT_DIR", "./artifacts"),
		BadgerPath:    getEnv("ARTIFACT_BADGER_PATH", "./artifacts.badger"),
		VectorizerRef: getEnv("ARTIFACT_VECTORIZER", "vectorizer.json"),
		ClassifierRef: getEnv("ARTIFACT_CLASSIFIER", "classifier.json"),
		LoadTimeout:   getDuration("ARTIFACT_LOAD_TIMEOUT", "30s"),
	}

	switch a.Store {
	case StoreFS, StoreBadger:
	default:
		return Artifacts{}, fmt.Errorf("ARTIFACT_STORE must be %q or %q, got %q", StoreFS, StoreBadger, a.Store)
	}
	if a.LoadTimeout <= 0 {
		return Artifacts{}, errors.New("ARTIFACT_LOAD_TIMEOUT must be positive")
	}

	return a, nil
}

// LoadInference reads batch prediction settings.
func LoadInference() (Inference, error) {
	in := Inference{
		Workers:       getInt("INFERENCE_WORKERS", 4),
		MaxTextLength: getInt("INFERENCE_MAX_TEXT_LEN", 10000),
		Language:      strings.ToLower(strings.TrimSpace(os.Getenv("INFERENCE_LANGUAGE"))),
	}

	if in.Workers <= 0 {
		return Inference{}, errors.New("INFERENCE_WORKERS must be positive")
	}
	if in.MaxTextLength < 0 {
		return Inference{}, errors.New("INFERENCE_MAX_TEXT_LEN cannot be negative")
	}

	return in, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	artifacts, err := LoadArtifacts()
	if err != nil {
		return nil, err
	}
	inference, err := LoadInference()
	if err != nil {
		return nil, err
	}

	c := &Worker{
		Common:         loadCommon(),
		Artifacts:      artifacts,
		Inference:      inference,
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "comments_raw"),
		KafkaConsumer:  getEnv("KAFKA_CONSUMER_GROUP", "sentiment-worker"),
		KafkaDLQTopic:  os.Getenv("KAFKA_DLQ_TOPIC"),
		DedupeCapacity: getInt("WORKER_DEDUPE_CAPACITY", 50000),
		DedupeTTL:      getDuration("WORKER_DEDUPE_TTL", "24h"),
		BatchSize:      getInt("WORKER_BATCH_SIZE", 50),
		CommitInterval: getDuration("WORKER_COMMIT_INTERVAL", "2s"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, errors.New("WORKER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, errors.New("WORKER_DEDUPE_CAPACITY must be positive")
	}
	if c.KafkaDLQTopic != "" && c.KafkaDLQTopic == c.KafkaTopic {
		return nil, errors.New("KAFKA_DLQ_TOPIC must differ from KAFKA_TOPIC")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	artifacts, err := LoadArtifacts()
	if err != nil {
		return nil, err
	}
	inference, err := LoadInference()
	if err != nil {
		return nil, err
	}

	c := &API{
		Common:        loadCommon(),
		Artifacts:     artifacts,
		Inference:     inference,
		BindAddr:      getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		MaxBatch:      getInt("API_MAX_BATCH", 5000),
		WordcloudSize: getInt("API_WORDCLOUD_SIZE", 100),
		DefaultPage:   getInt("API_PAGE_SIZE", 20),
		MaxPage:       getInt("API_MAX_PAGE_SIZE", 100),
	}

	if c.MaxBatch <= 0 {
		return nil, errors.New("API_MAX_BATCH must be positive")
	}
	if c.WordcloudSize <= 0 {
		return nil, errors.New("API_WORDCLOUD_SIZE must be positive")
	}
	if c.DefaultPage <= 0 {
		return nil, errors.New("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, errors.New("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, errors.New("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common:   loadCommon(),
		Interval: getDuration("RETENTION_CRON", "24h"),
		MaxAge:   getDuration("RETENTION_MAX_AGE", "2160h"),
	}

	if c.MaxAge <= 0 {
		return nil, errors.New("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, errors.New("RETENTION_CRON must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
