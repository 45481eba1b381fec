package config_test

import (
	"testing"
	"time"

	"github.com/DeafMist/comment-sentiment/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoadWorkerDefaults(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "")
	t.Setenv("ELASTICSEARCH_INDEX", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_TOPIC", "")
	t.Setenv("KAFKA_CONSUMER_GROUP", "")
	t.Setenv("KAFKA_DLQ_TOPIC", "")
	t.Setenv("ARTIFACT_STORE", "")
	t.Setenv("INFERENCE_LANGUAGE", "")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, "http://elasticsearch:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "comments", cfg.ElasticsearchIndex)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "comments_raw", cfg.KafkaTopic)
	require.Equal(t, "sentiment-worker", cfg.KafkaConsumer)
	require.Empty(t, cfg.KafkaDLQTopic)
	require.Equal(t, config.StoreFS, cfg.Store)
	require.Equal(t, "vectorizer.json", cfg.VectorizerRef)
	require.Equal(t, "classifier.json", cfg.ClassifierRef)
	require.Equal(t, 30*time.Second, cfg.LoadTimeout)
	require.Equal(t, 4, cfg.Workers)
	require.Empty(t, cfg.Language)
}

func TestLoadWorkerOverrides(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://localhost:9999")
	t.Setenv("ELASTICSEARCH_INDEX", "custom")
	t.Setenv("KAFKA_BROKERS", "broker-a:29092, broker-b:29093,")
	t.Setenv("KAFKA_TOPIC", "custom_topic")
	t.Setenv("KAFKA_CONSUMER_GROUP", "custom-group")
	t.Setenv("KAFKA_DLQ_TOPIC", "custom_dlq")
	t.Setenv("WORKER_DEDUPE_CAPACITY", "5")
	t.Setenv("WORKER_DEDUPE_TTL", "48h")
	t.Setenv("WORKER_BATCH_SIZE", "3")
	t.Setenv("WORKER_COMMIT_INTERVAL", "5s")
	t.Setenv("ARTIFACT_STORE", "Badger")
	t.Setenv("ARTIFACT_BADGER_PATH", "/var/lib/artifacts")
	t.Setenv("ARTIFACT_VECTORIZER", "tfidf-2024-03")
	t.Setenv("ARTIFACT_CLASSIFIER", "lgbm-2024-03")
	t.Setenv("ARTIFACT_LOAD_TIMEOUT", "5s")
	t.Setenv("INFERENCE_WORKERS", "16")
	t.Setenv("INFERENCE_MAX_TEXT_LEN", "0")
	t.Setenv("INFERENCE_LANGUAGE", " ENG ")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, "http://localhost:9999", cfg.ElasticsearchAddr)
	require.Equal(t, "custom", cfg.ElasticsearchIndex)
	require.Equal(t, []string{"broker-a:29092", "broker-b:29093"}, cfg.KafkaBrokers)
	require.Equal(t, "custom_topic", cfg.KafkaTopic)
	require.Equal(t, "custom-group", cfg.KafkaConsumer)
	require.Equal(t, "custom_dlq", cfg.KafkaDLQTopic)
	require.Equal(t, 5, cfg.DedupeCapacity)
	require.Equal(t, 48*time.Hour, cfg.DedupeTTL)
	require.Equal(t, 3, cfg.BatchSize)
	require.Equal(t, 5*time.Second, cfg.CommitInterval)
	require.Equal(t, config.StoreBadger, cfg.Store)
	require.Equal(t, "/var/lib/artifacts", cfg.BadgerPath)
	require.Equal(t, "tfidf-2024-03", cfg.VectorizerRef)
	require.Equal(t, "lgbm-2024-03", cfg.ClassifierRef)
	require.Equal(t, 5*time.Second, cfg.LoadTimeout)
	require.Equal(t, 16, cfg.Workers)
	require.Zero(t, cfg.MaxTextLength)
	require.Equal(t, "eng", cfg.Language)
}

func TestLoadWorkerRejects(t *testing.T) {
	cases := map[string][2]string{
		"unknown store":   {"ARTIFACT_STORE", "s3"},
		"zero workers":    {"INFERENCE_WORKERS", "0"},
		"negative length": {"INFERENCE_MAX_TEXT_LEN", "-1"},
		"zero batch":      {"WORKER_BATCH_SIZE", "0"},
		"no brokers":      {"KAFKA_BROKERS", " , "},
		"dlq loops":       {"KAFKA_DLQ_TOPIC", "comments_raw"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("KAFKA_TOPIC", "")
			t.Setenv(kv[0], kv[1])
			_, err := config.LoadWorker()
			require.Error(t, err)
		})
	}
}

func TestLoadAPI(t *testing.T) {
	t.Setenv("API_BIND_ADDR", ":9090")
	t.Setenv("API_MAX_BATCH", "250")
	t.Setenv("API_WORDCLOUD_SIZE", "40")
	t.Setenv("API_PAGE_SIZE", "15")
	t.Setenv("API_MAX_PAGE_SIZE", "200")
	t.Setenv("ELASTICSEARCH_ADDR", "http://api-es:9200")
	t.Setenv("ELASTICSEARCH_INDEX", "api-index")
	t.Setenv("ARTIFACT_DIR", "/models")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.BindAddr)
	require.Equal(t, 250, cfg.MaxBatch)
	require.Equal(t, 40, cfg.WordcloudSize)
	require.Equal(t, 15, cfg.DefaultPage)
	require.Equal(t, 200, cfg.MaxPage)
	require.Equal(t, "http://api-es:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "api-index", cfg.ElasticsearchIndex)
	require.Equal(t, "/models", cfg.Dir)
}

func TestLoadAPIPageBounds(t *testing.T) {
	t.Setenv("API_PAGE_SIZE", "50")
	t.Setenv("API_MAX_PAGE_SIZE", "10")

	_, err := config.LoadAPI()
	require.ErrorContains(t, err, "API_PAGE_SIZE")
}

func TestLoadRetention(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://ret-es:9200")
	t.Setenv("ELASTICSEARCH_INDEX", "ret-index")
	t.Setenv("RETENTION_CRON", "12h")
	t.Setenv("RETENTION_MAX_AGE", "36h")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)

	require.Equal(t, 12*time.Hour, cfg.Interval)
	require.Equal(t, 36*time.Hour, cfg.MaxAge)
	require.Equal(t, "http://ret-es:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "ret-index", cfg.ElasticsearchIndex)
}

func TestLoadRetentionFallsBackOnBadDuration(t *testing.T) {
	t.Setenv("RETENTION_CRON", "daily")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)
	require.Equal(t, 24*time.Hour, cfg.Interval)
}
