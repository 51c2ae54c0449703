// Package retry re-runs transient failures against the token service and the
// platform API.
//
// Only typed errors from pkg/errors whose type is network, rate_limit or
// server_error are retried by default. Rate-limit errors back off far longer
// than network errors when the policy is an ErrorTypeBackoff:
//
//	cfg := retry.FromConfig(appCfg.Retry, log)
//	page, err := retry.DoWithResult(ctx, func(ctx context.Context) (*api.HomefeedData, error) {
//		return client.FetchHomefeed(ctx, req)
//	}, cfg)
//
// Waiting between attempts respects ctx, so a cancelled command stops
// immediately instead of sleeping out the backoff.
package retry
