package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORE_TIMEOUT", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite:///./visadesk.db", cfg.Database.URL)
	assert.Equal(t, 5*time.Second, cfg.Database.StoreTimeout)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 50, cfg.Lifecycle.SlugMaxAttempts)
	assert.Equal(t, 5, cfg.Lifecycle.RecentActivityCap)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("SENTRY_SAMPLE_RATE", "0.25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 750*time.Millisecond, cfg.Database.StoreTimeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.InDelta(t, 0.25, cfg.Sentry.SampleRate, 1e-9)
}

func TestLoadRejectsBadLogFormat(t *testing.T) {
	t.Setenv("LOG_FORMAT", "xml")

	_, err := Load()
	assert.ErrorContains(t, err, "LOG_FORMAT")
}

func TestPostgresDSN(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "full url",
			url:  "postgresql://visa:s3cr:et@db.internal:6543/visadesk?sslmode=require",
			want: "host=db.internal port=6543 user=visa dbname=visadesk sslmode=require password=s3cr:et",
		},
		{
			name: "defaults",
			url:  "postgres://visa@db",
			want: "host=db port=5432 user=visa dbname=postgres sslmode=disable",
		},
		{
			name: "already dsn",
			url:  "host=localhost user=visa dbname=visadesk",
			want: "host=localhost user=visa dbname=visadesk",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DatabaseConfig{URL: tt.url}
			assert.True(t, c.IsPostgres())
			assert.Equal(t, tt.want, c.GetPostgresDSN())
		})
	}
}

func TestSQLitePath(t *testing.T) {
	c := DatabaseConfig{URL: "sqlite:///./data/visadesk.db"}
	assert.False(t, c.IsPostgres())
	assert.Equal(t, "./data/visadesk.db", c.GetSQLitePath())

	c = DatabaseConfig{URL: "file::memory:?cache=shared"}
	assert.Equal(t, "file::memory:?cache=shared", c.GetSQLitePath())
}
