// Package splice feeds a growing, ordered list of sources into the standard
// input of one long-running process.
//
// Items are submitted at any time and consumed strictly one at a time, in
// submission order. Each item is turned into a stream by a resolver.Resolver
// and copied into the process without buffering it whole; the next item is
// not opened before the previous one has been drained. Standard input is
// closed only after EndSubmissions has been called and the queue is empty.
//
//	engine, err := splice.Spawn(ctx, process.Command{
//	    Binary: "ffmpeg",
//	    Args:   []string{"-f", "mpegts", "-i", "-", "out.mp4"},
//	    Stdout: os.Stdout,
//	    Stderr: os.Stderr,
//	})
//	engine.Submit("https://example.com/part-0.ts")
//	engine.Submit("/var/media/part-1.ts")
//	engine.EndSubmissions()
//	exit, err := engine.Wait(ctx)
//
// A failing item produces an EventError and the engine moves on to the next
// one. SubmitDeferred queues an item without starting consumption, which
// lets a producer stage several items before the process sees any input.
package splice
