package scheduler

import (
	"fmt"
	"time"

	"github.com/sandeepkv93/taskplan/internal/model"
)

// Cursor is the running start point of a greedy placement pass. It is
// threaded through placement calls by value.
type Cursor struct {
	At time.Time
}

func (c *Checker) StartCursor() Cursor {
	return Cursor{At: c.avail.AlignUp(c.loc, c.avail.WindowStart)}
}

// Advance moves the cursor past a freshly placed block. When the block
// exhausts the continuous work allowance the cursor also skips the break.
// placed must not contain the block itself.
func (c *Checker) Advance(cur Cursor, block model.Interval, placed []model.Interval) Cursor {
	next := block.End
	if c.rules.MaxContinuous > 0 {
		if work, _ := c.chain(block, placed); work >= c.rules.MaxContinuous {
			next = next.Add(c.rules.Break)
		}
	}
	if next.After(cur.At) {
		return Cursor{At: next}
	}
	return cur
}

// Probe walks the slot grid forward from `from` and returns the first legal
// interval of length d that ends no later than the window end.
func (c *Checker) Probe(from time.Time, d time.Duration, placed []model.Interval) (model.Interval, error) {
	if d <= 0 {
		return model.Interval{}, fmt.Errorf("scheduler: non-positive duration %s", d)
	}
	if from.Before(c.avail.WindowStart) {
		from = c.avail.WindowStart
	}
	slot := c.avail.Slot()
	p := c.avail.AlignUp(c.loc, from)
	for !p.Add(d).After(c.avail.WindowEnd) {
		v := c.Check(p, p.Add(d), placed)
		if v.Legal {
			return model.Interval{Start: p, End: p.Add(d)}, nil
		}
		next := c.avail.AlignUp(c.loc, p.Add(slot))
		if (v.Reason == ReasonEvent || v.Reason == ReasonBlock) && v.ConflictEnd.After(next) {
			// every start before the conflict's end still overlaps it
			next = c.avail.AlignUp(c.loc, v.ConflictEnd)
		}
		p = next
	}
	return model.Interval{}, fmt.Errorf("%w: %s block from %s", model.ErrUnplaceable, d, from.In(c.loc).Format(time.RFC3339))
}

// Nearest returns target itself when [target, target+d) is legal, and
// otherwise the legal slot-grid start closest to target. Ties go to the
// earlier slot.
func (c *Checker) Nearest(target time.Time, d time.Duration, placed []model.Interval) (model.Interval, error) {
	if d <= 0 {
		return model.Interval{}, fmt.Errorf("scheduler: non-positive duration %s", d)
	}
	if c.IsLegal(target, target.Add(d), placed) {
		return model.Interval{Start: target, End: target.Add(d)}, nil
	}

	ws, we := c.avail.WindowStart, c.avail.WindowEnd
	lo := c.avail.AlignDown(c.loc, target)
	if !lo.Before(target) {
		lo = c.prevSlot(lo)
	}
	if latest := c.avail.AlignDown(c.loc, we.Add(-d)); lo.After(latest) {
		lo = latest
	}
	hi := c.avail.AlignUp(c.loc, target)
	if !hi.After(target) {
		hi = c.nextSlot(hi)
	}
	if earliest := c.avail.AlignUp(c.loc, ws); hi.Before(earliest) {
		hi = earliest
	}

	loOK := !lo.Before(ws)
	hiOK := !hi.Add(d).After(we)
	for loOK || hiOK {
		if loOK && (!hiOK || target.Sub(lo) <= hi.Sub(target)) {
			if c.IsLegal(lo, lo.Add(d), placed) {
				return model.Interval{Start: lo, End: lo.Add(d)}, nil
			}
			lo = c.prevSlot(lo)
			loOK = !lo.Before(ws)
			continue
		}
		if c.IsLegal(hi, hi.Add(d), placed) {
			return model.Interval{Start: hi, End: hi.Add(d)}, nil
		}
		hi = c.nextSlot(hi)
		hiOK = !hi.Add(d).After(we)
	}
	return model.Interval{}, fmt.Errorf("%w: no %s slot near %s", model.ErrUnplaceable, d, target.In(c.loc).Format(time.RFC3339))
}

func (c *Checker) prevSlot(t time.Time) time.Time {
	return c.avail.AlignDown(c.loc, t.Add(-time.Nanosecond))
}

func (c *Checker) nextSlot(t time.Time) time.Time {
	return c.avail.AlignUp(c.loc, t.Add(time.Nanosecond))
}
