package knora

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func BenchmarkExecStats(b *testing.B) {
	stats := NewExecStats("registry")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		stats.Start()
		_, _ = stats.End()
	}
}

func BenchmarkRetryBackoffCalculation(b *testing.B) {
	policy := DefaultRetryPolicy()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		policy.Backoff(i%10 + 1)
	}
}

func BenchmarkRetrySuccess(b *testing.B) {
	policy := DefaultRetryPolicy()
	ctx := context.Background()

	operation := func(ctx context.Context) error {
		return nil // Operation always succeeds
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = policy.Do(ctx, operation, IsRecoverable)
	}
}

func BenchmarkIsRecoverable(b *testing.B) {
	errs := []error{
		nil,
		loginFailed(ServiceRegistry, http.StatusServiceUnavailable, nil),
		thumbnailFailed(0, nil),
		noResult("get", http.StatusNotFound, nil),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		IsRecoverable(errs[i%len(errs)])
	}
}

func BenchmarkSessionToken(b *testing.B) {
	header := "KnoraAuthentication=0123456789abcdef; Path=/; HttpOnly"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sessionToken(header)
	}
}

func BenchmarkClientCreation(b *testing.B) {
	config := Config{
		Target:         Target{Registry: "http://localhost:3333", AssetStore: "http://localhost:1024"},
		RequestTimeout: 30 * time.Second,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := New(config); err != nil {
			b.Fatalf("Failed to create client: %v", err)
		}
	}
}

// Benchmark for concurrent dry-run id generation
func BenchmarkConcurrentDryRunID(b *testing.B) {
	client, err := New(Config{DryRun: true})
	if err != nil {
		b.Fatalf("Failed to create client: %v", err)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			client.dryRunID()
		}
	})
}
