/*
Package tracing tags every request and stream message with a trace id and
logs one line per span.

Each HTTP request gets an X-Trace-ID (a ULID prefixed with "trace_") unless
the browser already sent one. The id rides in the request context, is echoed
in the response headers, and is forwarded to upstream APIs by Inject.
Websocket streams inherit the trace of their upgrade request, so chat and
weather frames show up as child spans of it.

Ended spans go through a buffered channel to a collector goroutine; a full
buffer drops spans rather than blocking the caller.

	tracer := tracing.New("webdesk", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	ctx, span := tracer.Start(ctx, "ws.weather")
	defer span.End()

	tracing.LoggerFor(ctx, logger).Error("weather lookup failed", zap.Error(err))
*/
package tracing
