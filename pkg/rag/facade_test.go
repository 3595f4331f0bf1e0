package rag

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/predicato/pkg/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Storage: config.StorageConfig{WorkingDir: t.TempDir()},
		Providers: config.ProvidersConfig{
			LLM: config.ProviderConfig{
				Backend: "local-inprocess-gpu",
				Model:   "test-llm",
			},
			Embedding: config.ProviderConfig{
				Backend:   "local-inprocess-gpu",
				Dimension: 8,
			},
			Scheduler: config.SchedulerConfig{MaxBatchSize: 4, MaxWaitSeconds: 0.05},
		},
	}
}

func TestService_LazyInitIsOnce(t *testing.T) {
	cfg := testConfig(t)
	svc := NewService(cfg, nil)

	initialized, err := svc.Status()
	require.NoError(t, err)
	assert.False(t, initialized)

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.ProcessDocument(context.Background(), path)
		}()
	}
	wg.Wait()

	initialized, err = svc.Status()
	require.NoError(t, err)
	assert.True(t, initialized)

	require.NoError(t, svc.Shutdown())
	initialized, err = svc.Status()
	require.NoError(t, err)
	assert.False(t, initialized)
}

func TestService_ShutdownWithoutInitIsNoop(t *testing.T) {
	svc := NewService(testConfig(t), nil)
	assert.NoError(t, svc.Shutdown())
}
