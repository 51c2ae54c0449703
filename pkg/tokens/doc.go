// Package tokens is the client for the remote token service that signs
// platform requests.
//
// Every platform call needs three header values: x-s and x-t, which are
// bound to the endpoint and payload, and x-s-common, which is bound to the
// device id and lives until the expiry the service reports. The signature
// algorithm itself lives on the service; this package only transports,
// caches and throttles.
//
//	c := tokens.New(cfg.TokenServer, tokens.Options{
//		Limiter: ratelimit.PerHour(cfg.RateLimit.TokenRequestsPerHour),
//		Retry:   retry.FromConfig(cfg.Retry, log),
//		Logger:  log,
//	})
//	sig, err := c.Sign(ctx, "/api/sns/web/v1/homefeed", payload, jar.DeviceID())
package tokens
