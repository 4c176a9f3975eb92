// Package telemetry sets up OpenTelemetry tracing and metrics export for
// ragnchat.
//
// Spans opened by the pipelines (repository.Vectorize, chat.Answer,
// Gateway.*) and the embedding and HTTP meters go through the global
// providers, which New installs when observability.enable_telemetry is set:
//
//	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Observability, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
// Exporters speak OTLP over gRPC (default) or HTTP/protobuf. Failures to
// build a provider degrade the instance instead of failing startup.
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
