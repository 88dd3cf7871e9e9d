// Package pipeline runs one collection pass end to end.
//
// A run loads the previous run state, clears leftovers from the temp
// directory, signs in to the archive, lists the followed blogs and then
// connects a single scanner goroutine to a pool of download workers through
// a bounded queue. Once the queue drains the run state is written, and only
// then; a failed or interrupted run leaves the previous state in place so
// the next run covers the same window again.
//
// Usage:
//
//	p, err := pipeline.Build(cfg, log)
//	if err != nil {
//	    return err
//	}
//	report, err := p.Run(ctx, pipeline.RunOptions{})
package pipeline
