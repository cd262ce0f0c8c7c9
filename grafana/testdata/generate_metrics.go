// Package main serves sample aivalidator metrics so Grafana dashboards can
// be built without running real validations.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vezlo/ai-validator/internal/metrics"
)

var (
	checks     = []string{"classification", "context", "accuracy", "hallucination"}
	errTimeout = errors.New("provider timeout")
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	generateSampleData(200)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go generateContinuousData(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	fmt.Printf("Sample metrics server running on http://localhost:%s/metrics\n", port)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println("\nTo use with Prometheus, add this to prometheus.yml:")
	fmt.Printf("  - job_name: 'aivalidator-test'\n    static_configs:\n      - targets: ['localhost:%s']\n", port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// generateSampleData records n synthetic validations.
func generateSampleData(n int) {
	for i := 0; i < n; i++ {
		simulateValidation()
	}
}

// simulateValidation records one validation with a plausible mix of
// skipped greetings, check failures and fused scores.
func simulateValidation() {
	if rand.Float64() < 0.15 {
		metrics.ObserveValidation(metrics.OutcomeSkipped, 1.0)
		return
	}

	for _, check := range checks {
		var err error
		if check != "classification" && rand.Float64() < 0.03 {
			err = errTimeout
		}
		start := time.Now().Add(-checkLatency(check))
		metrics.ObserveCheck(check, start, err)
		if err != nil && check != "context" {
			metrics.ObserveValidation(metrics.OutcomeError, 0)
			return
		}
		if err != nil {
			metrics.GraderFallbacks.Inc()
		}
	}

	score := rand.Float64()
	outcome := metrics.OutcomeFail
	if score >= 0.7 {
		outcome = metrics.OutcomePass
	}
	metrics.ObserveValidation(outcome, score)
}

// checkLatency returns a synthetic duration; LLM-backed checks are slower.
func checkLatency(check string) time.Duration {
	if check == "classification" {
		return time.Duration(rand.Intn(500)) * time.Microsecond
	}
	return time.Duration(200+rand.Intn(1800)) * time.Millisecond
}

func generateContinuousData(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			generateSampleData(1 + rand.Intn(5))
		}
	}
}
