// Package logging provides structured logging on top of zap.
//
// Logger methods take a context and append correlation fields found in it:
// trace and span ids from OpenTelemetry, the request id set by the HTTP
// layer and the repository namespace an operation works on.
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig(), nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithNamespace(ctx, "owner/repo/main")
//	logger.Info(ctx, "repository vectorized", zap.Int("processed_files", n))
//
// Field names such as api_key, token and authorization are redacted by the
// encoder, as are values that look like bearer tokens.
package logging
