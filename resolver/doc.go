// Package resolver turns submitted items into byte streams.
//
// Classify sorts an item into one of four kinds before anything is opened:
// an absolute http(s) URL, a filesystem path (any other text), a stream (an
// io.Reader) or unknown. The Default resolver fetches URLs through
// httpclient, opens paths with os.Open and hands streams back untouched.
//
// Custom resolvers implement Resolver directly, wrap a function with
// ResolveFunc, or use Func for completion-style code:
//
//	r := resolver.Func(func(ctx context.Context, item any, done *resolver.Completion) {
//	    go func() {
//	        rc, err := fetch(ctx, item)
//	        if err != nil {
//	            done.Fail(err)
//	            return
//	        }
//	        done.Succeed(rc)
//	    }()
//	})
package resolver
