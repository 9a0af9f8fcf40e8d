package trace

import (
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// MetricsInterval is how often collected metrics are written to the output.
var MetricsInterval = 60 * time.Second

var meterProvider *sdkmetric.MeterProvider

func initMetrics(out io.Writer, res *resource.Resource, pretty bool) error {
	opts := []stdoutmetric.Option{stdoutmetric.WithWriter(out)}
	if pretty {
		opts = append(opts, stdoutmetric.WithPrettyPrint())
	}
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return err
	}

	meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(MetricsInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)
	return nil
}

// MetricsEnabled reports whether a meter provider was installed by Init.
func MetricsEnabled() bool {
	return meterProvider != nil
}
