// Package metrics はリクエスト件数と所要時間を OpenTelemetry で計測し、Prometheus 形式で公開します。
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// 結果ラベルの値
const (
	OutcomeSuccess    = "success"
	OutcomeNoImage    = "no_image"
	OutcomeRemote     = "remote_error"
	OutcomeValidation = "invalid"
	OutcomeStale      = "stale"
	OutcomeError      = "error"
)

// Recorder は専用の Prometheus レジストリへ出力する MeterProvider を保持します。
// プロセス全体のデフォルトレジストリには登録しません。
type Recorder struct {
	provider *sdkmetric.MeterProvider
	registry *promclient.Registry

	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// New は serviceName をリソース属性に持つ Recorder を初期化します。
func New(serviceName string) (*Recorder, error) {
	registry := promclient.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("prometheus exporter の作成に失敗しました: %w", err)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.TelemetrySDKLanguageGo,
			semconv.TelemetrySDKName("opentelemetry"),
			semconv.TelemetrySDKVersion(otel.Version()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("resource の作成に失敗しました: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	meter := provider.Meter(serviceName)

	requests, err := meter.Int64Counter(
		"studio_requests",
		metric.WithDescription("Image operations handled, by operation and outcome"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"studio_request_duration",
		metric.WithDescription("Time spent waiting for the remote image service"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Recorder{
		provider: provider,
		registry: registry,
		requests: requests,
		duration: duration,
	}, nil
}

// RecordRequest は1回の操作の結果と所要時間を記録します。nil レシーバーでは何もしません。
func (r *Recorder) RecordRequest(ctx context.Context, operation, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
	r.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// Handler は /metrics 用のハンドラーを返します。
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Shutdown は MeterProvider を停止します。
func (r *Recorder) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}
