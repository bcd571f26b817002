package history

import "context"

// Fanout writes to a primary sink whose error is returned, then hands the
// record to Outputs for background delivery. Outputs are skipped when the
// primary fails; a later successful retry of the primary enqueues them.
type Fanout struct {
	Primary Sink
	Outputs *Dispatcher
}

type NamedSink struct {
	Name string
	Sink Sink
}

func (f *Fanout) RecordMatch(ctx context.Context, rec MatchRecord) error {
	if f.Primary != nil {
		if err := f.Primary.RecordMatch(ctx, rec); err != nil {
			return err
		}
	}
	if f.Outputs != nil {
		f.Outputs.Enqueue(rec)
	}
	return nil
}
