// Package observability provides OpenTelemetry tracing and metrics for the
// splice engine.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("cmdstream"))
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &cfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewSpliceMetrics(observability.Meter("cmdstream"))
//	engine, err := splice.Spawn(ctx, cmd, splice.WithMetrics(metrics))
//
// Setup starts both from a Config and returns one shutdown function. With
// both exporters disabled the global no-op providers stay in place and the
// engine's spans and instruments cost nothing.
package observability
