package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingFile_Write(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "meshchat.log")
	rf, err := OpenRotatingFile(path, 100, 2)
	require.NoError(t, err)
	defer rf.Close()

	data := []byte("hello world\n")
	n, err := rf.Write(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, content)
}

func TestRotatingFile_KeepsMaxBackups(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "meshchat.log")
	rf, err := OpenRotatingFile(path, 20, 2)
	require.NoError(t, err)
	defer rf.Close()

	for _, c := range "abcd" {
		_, err := rf.Write([]byte(strings.Repeat(string(c), 15)))
		require.NoError(t, err)
	}

	read := func(p string) string {
		b, err := os.ReadFile(p)
		require.NoError(t, err)
		return string(b)
	}
	assert.Equal(t, strings.Repeat("d", 15), read(path))
	assert.Equal(t, strings.Repeat("c", 15), read(path+".1"))
	assert.Equal(t, strings.Repeat("b", 15), read(path+".2"))
	assert.NoFileExists(t, path+".3")
}

func TestRotatingFile_OversizedWriteIsKept(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "meshchat.log")
	rf, err := OpenRotatingFile(path, 10, 1)
	require.NoError(t, err)
	defer rf.Close()

	_, err = rf.Write([]byte(strings.Repeat("x", 50)))
	require.NoError(t, err)
	assert.NoFileExists(t, path+".1", "an empty file is not rotated")
}

func TestRotatingFile_NoBackups(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "meshchat.log")
	rf, err := OpenRotatingFile(path, 10, 0)
	require.NoError(t, err)
	defer rf.Close()

	_, err = rf.Write([]byte("12345678"))
	require.NoError(t, err)
	_, err = rf.Write([]byte("abcdefgh"))
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abcdefgh", string(content))
	assert.NoFileExists(t, path+".1")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "DEBUG", want: slog.LevelDebug},
		{in: "warning", want: slog.LevelWarn},
		{in: " error ", want: slog.LevelError},
		{in: "trace", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetup_RejectsBadSize(t *testing.T) {
	t.Parallel()

	_, err := Setup(Config{Path: filepath.Join(t.TempDir(), "x.log"), MaxSize: "lots"}, false)
	require.Error(t, err)
}
