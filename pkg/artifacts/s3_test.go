package artifacts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKeyRoundTrip(t *testing.T) {
	t.Parallel()

	key := objectKey("session-1", "report.md", 12)
	assert.Equal(t, "session-1/report.md/v000012", key)

	filename, version, ok := parseObjectKey(key)
	require.True(t, ok)
	assert.Equal(t, "report.md", filename)
	assert.Equal(t, 12, version)
}

func TestParseObjectKey_Invalid(t *testing.T) {
	t.Parallel()

	for _, key := range []string{
		"session-1/report.md",
		"session-1/report.md/12",
		"session-1/report.md/vx",
		"session-1/report.md/v0",
		"session-1//v1",
		"session-1/a/b/v1",
	} {
		_, _, ok := parseObjectKey(key)
		assert.False(t, ok, key)
	}
}

func TestNewS3Store_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  S3Config
		want string
	}{
		{"no endpoint", S3Config{AccessKey: "a", SecretKey: "s", Bucket: "b"}, "endpoint"},
		{"no credentials", S3Config{Endpoint: "localhost:9000", Bucket: "b"}, "access key"},
		{"no bucket", S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, "bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewS3Store(tt.cfg)
			require.ErrorContains(t, err, tt.want)
		})
	}

	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "artifacts"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", s.region)
}
