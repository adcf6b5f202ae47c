// Package httpclient opens remote sources as streams.
//
// Open issues a GET and hands back the response body unread so the caller can
// splice it without buffering. Only HTTP 200 counts as success; any other
// status becomes a *StatusError that keeps the status line, headers and the
// first bytes of the body for inspection. Redirects are not followed unless
// Config.FollowRedirects is set.
//
//	client, err := httpclient.New(httpclient.Config{
//	    Timeout:   10 * time.Second,
//	    RateLimit: &resilience.RateLimiterConfig{Rate: 5, Burst: 5},
//	})
//	resp, err := client.Open(ctx, "https://example.com/part-1.csv")
//	defer resp.Close()
//	io.Copy(dst, resp.Body)
package httpclient
