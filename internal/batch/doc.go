// Package batch fetches comments for many notes with a bounded worker pool.
//
// Workers share one rate limiter so a large batch cannot outrun the
// platform's request budget, and a Sink lets an interrupted batch skip notes
// whose comments were already saved.
package batch
