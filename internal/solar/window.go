package solar

import (
	"context"
	"fmt"
	"time"
)

// Window is an inclusive date range submitted as one fetch.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) String() string {
	return w.From.Format(DateLayout) + " -> " + w.To.Format(DateLayout)
}

// WindowWalker drives the inclusive range [Start, End] in windows of Days
// days. The last window is clipped to End.
type WindowWalker struct {
	Start time.Time
	End   time.Time
	Days  int
}

// WalkResult summarizes one walk.
type WalkResult struct {
	Windows int
	Failed  []Window
}

// Validate checks the walker bounds.
func (w WindowWalker) Validate() error {
	if w.Days < 1 {
		return fmt.Errorf("window must be at least one day, got %d", w.Days)
	}
	if w.End.Before(w.Start) {
		return fmt.Errorf("end %s is before start %s", w.End.Format(DateLayout), w.Start.Format(DateLayout))
	}
	return nil
}

// Windows returns every window the walk will visit.
func (w WindowWalker) Windows() []Window {
	var out []Window
	if w.Days < 1 {
		return out
	}
	for cursor := w.Start; !cursor.After(w.End); cursor = cursor.AddDate(0, 0, w.Days) {
		end := cursor.AddDate(0, 0, w.Days-1)
		if end.After(w.End) {
			end = w.End
		}
		out = append(out, Window{From: cursor, To: end})
	}
	return out
}

// Walk calls fn once per window in order. A window whose fn fails is
// recorded and the walk moves on; it is never retried. The walk stops
// early only when ctx is done.
func (w WindowWalker) Walk(ctx context.Context, fn func(ctx context.Context, win Window) error) (WalkResult, error) {
	var res WalkResult
	if err := w.Validate(); err != nil {
		return res, err
	}

	for _, win := range w.Windows() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Windows++
		if err := fn(ctx, win); err != nil {
			res.Failed = append(res.Failed, win)
		}
	}
	return res, nil
}
