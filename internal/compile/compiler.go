package compile

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/SASlabgroup/microSWIFTtelemetry/internal/sbd"
)

// Compiler decodes batches of raw messages and merges them into a Container.
// Decoding is embarrassingly parallel and runs on a bounded worker pool; the
// merge step restores a deterministic order so the result is identical to
// sequential execution regardless of scheduling.
type Compiler struct {
	dec     *sbd.Decoder
	workers int
}

// NewCompiler returns a compiler using dec. workers bounds decode
// concurrency; values < 1 select one worker per CPU.
func NewCompiler(dec *sbd.Decoder, workers int) *Compiler {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Compiler{dec: dec, workers: workers}
}

// Compile decodes every message captured within [start, end] (both ends
// inclusive) and compiles the results into per-variable ordered series.
// A zero end means "now". Malformed individual messages become error records
// and never fail the batch; records whose resolved timestamp falls outside
// the range are dropped so the container only carries in-range samples.
// Exact timestamp collisions are kept, tie-broken by arrival order, so
// duplicate transmissions stay visible to the caller. Cancellation of ctx
// aborts the whole run with no partial result.
func (c *Compiler) Compile(ctx context.Context, buoyID string, start, end time.Time, msgs []sbd.RawMessage) (*Container, error) {
	if end.IsZero() {
		end = time.Now().UTC()
	}

	// Cheap rejection on provenance time before any decoding. Messages
	// without a capture time cannot be rejected here; their records are
	// range-checked after decode instead.
	var filtered []sbd.RawMessage
	for _, m := range msgs {
		if m.Captured.IsZero() || inRange(m.Captured, start, end) {
			filtered = append(filtered, m)
		}
	}

	outcomes, err := c.decodeAll(ctx, filtered)
	if err != nil {
		return nil, err
	}

	type placed struct {
		idx int // arrival order, the deterministic tie-break
		rec sbd.Record
	}
	var records []placed
	var errRecs []indexedError
	for i, out := range outcomes {
		switch {
		case out.errRec != nil:
			errRecs = append(errRecs, indexedError{idx: i, rec: *out.errRec})
		case out.rec != nil:
			if inRange(out.rec.Time(), start, end) {
				records = append(records, placed{idx: i, rec: out.rec})
			}
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		ti, tj := records[i].rec.Time(), records[j].rec.Time()
		if ti.Equal(tj) {
			return records[i].idx < records[j].idx
		}
		return ti.Before(tj)
	})
	sort.SliceStable(errRecs, func(i, j int) bool {
		ti, tj := errRecs[i].rec.Time, errRecs[j].rec.Time
		if ti.Equal(tj) {
			return errRecs[i].idx < errRecs[j].idx
		}
		return ti.Before(tj)
	})

	container := newContainer(buoyID)
	for _, p := range records {
		container.append(p.rec)
	}
	for _, e := range errRecs {
		container.errs = append(container.errs, e.rec)
	}
	return container, nil
}

type indexedError struct {
	idx int
	rec sbd.ErrorRecord
}

type outcome struct {
	rec    sbd.Record
	errRec *sbd.ErrorRecord
}

// decodeAll fans messages out to the worker pool. Results land in a slice
// indexed by arrival position, which keeps the later merge deterministic.
func (c *Compiler) decodeAll(ctx context.Context, msgs []sbd.RawMessage) ([]outcome, error) {
	if len(msgs) == 0 {
		return nil, ctx.Err()
	}
	workers := c.workers
	if workers > len(msgs) {
		workers = len(msgs)
	}

	results := make([]outcome, len(msgs))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rec, errRec := c.dec.Decode(msgs[i])
				results[i] = outcome{rec: rec, errRec: errRec}
			}
		}()
	}

feed:
	for i := range msgs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	// All-or-nothing: a deadline hit between decodes discards the partial
	// batch rather than returning it truncated.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
