package passes

import (
	"context"
	"math"
	"time"

	"github.com/star/passwatch/internal/propagation"
	"github.com/star/passwatch/internal/transform"
)

// invPhi is 1/φ, the golden-section shrink factor.
var invPhi = (math.Sqrt(5) - 1) / 2

// sample is one evaluated instant.
type sample struct {
	t     time.Time
	look  transform.LookAngles
	state propagation.State
}

func (s sample) el() float64 { return s.look.ElevationDeg }

// candidate is a bracketed pass before the elevation threshold is applied.
type candidate struct {
	rise, max, set sample
}

// scan walks [start, end] for passes of one model over one site. Every elevation
// evaluation is counted. Coarse steps are bounded by the horizon and each refinement
// by cfg.MaxRefine, so a scan costs at most
// 1 + ceil(horizon/CoarseStep) + brackets*(3*MaxRefine+3) evaluations.
type scan struct {
	ctx   context.Context
	model propagation.Model
	site  transform.Site
	cfg   Config

	evals int
}

func (s *scan) at(t time.Time) (sample, error) {
	s.evals++
	st, err := s.model.At(t)
	if err != nil {
		return sample{}, err
	}
	return sample{t: t, look: s.site.Look(st.Position), state: st}, nil
}

// run returns up to limit candidates whose rise and set both fall inside the window
// and whose maximum reaches minEl. A pass already in progress at start or still in
// progress at end is not reported.
//
// The scan is searching until a coarse step crosses the horizon upward, then rise
// bracketed until one crosses it downward. refine then locates the maximum and the set
// and the candidate is emitted or discarded before searching resumes.
func (s *scan) run(start, end time.Time, minEl float64, limit int) ([]candidate, error) {
	var out []candidate

	prev, err := s.at(start)
	if err != nil {
		return nil, err
	}

	var (
		bracketed      bool
		riseLo, riseHi sample
		best           sample
	)
	for len(out) < limit && prev.t.Before(end) {
		if err := s.ctx.Err(); err != nil {
			return out, err
		}
		next, err := s.at(s.step(prev.t, end))
		if err != nil {
			return out, err
		}

		switch {
		case !bracketed:
			if prev.el() < 0 && next.el() >= 0 {
				riseLo, riseHi, best = prev, next, next
				bracketed = true
			}
		case next.el() >= 0:
			if next.el() > best.el() {
				best = next
			}
		default:
			cand, ok, err := s.refine(riseLo, riseHi, best, prev, next)
			if err != nil {
				return out, err
			}
			if ok && cand.max.el() >= minEl {
				out = append(out, cand)
			}
			bracketed = false
		}
		prev = next
	}
	return out, nil
}

// step returns the next coarse instant, clipped to end.
func (s *scan) step(t, end time.Time) time.Time {
	next := t.Add(s.cfg.CoarseStep)
	if next.After(end) {
		return end
	}
	return next
}

// refine locates rise, maximum and set of one bracketed pass. ok is false for passes
// too brief to satisfy rise < max < set at the search resolution.
func (s *scan) refine(riseLo, riseHi, best, setLo, setHi sample) (candidate, bool, error) {
	rise, err := s.crossing(riseLo, riseHi, true)
	if err != nil {
		return candidate{}, false, err
	}
	lo := maxTime(rise.t, best.t.Add(-s.cfg.CoarseStep))
	hi := best.t.Add(s.cfg.CoarseStep)
	set, err := s.crossing(setLo, setHi, false)
	if err != nil {
		return candidate{}, false, err
	}
	hi = minTime(hi, set.t)

	peak, err := s.maximum(lo, hi, best)
	if err != nil {
		return candidate{}, false, err
	}

	if !rise.t.Before(peak.t) || !peak.t.Before(set.t) {
		return candidate{}, false, nil
	}
	return candidate{rise: rise, max: peak, set: set}, true, nil
}

// crossing bisects a 0° crossing between lo and hi. For a rising bracket it returns
// the first sample at or above the horizon, for a setting one the last.
func (s *scan) crossing(lo, hi sample, rising bool) (sample, error) {
	for i := 0; i < s.cfg.MaxRefine && hi.t.Sub(lo.t) > s.cfg.Tolerance; i++ {
		mid, err := s.at(lo.t.Add((hi.t.Sub(lo.t) / 2).Truncate(time.Second)))
		if err != nil {
			return sample{}, err
		}
		if (mid.el() >= 0) == rising {
			hi = mid
		} else {
			lo = mid
		}
	}
	if rising {
		return hi, nil
	}
	return lo, nil
}

// maximum runs a golden-section search for the elevation peak in [lo, hi], seeded
// with the best coarse sample, which it never does worse than.
func (s *scan) maximum(lo, hi time.Time, seed sample) (sample, error) {
	best := seed
	at := func(x float64) (sample, error) {
		smp, err := s.at(lo.Add(time.Duration(math.Round(x)) * time.Second))
		if err == nil && smp.el() > best.el() {
			best = smp
		}
		return smp, err
	}

	a, b := 0.0, hi.Sub(lo).Seconds()
	if b <= 0 {
		return best, nil
	}
	c, d := b-invPhi*(b-a), a+invPhi*(b-a)
	fc, err := at(c)
	if err != nil {
		return sample{}, err
	}
	fd, err := at(d)
	if err != nil {
		return sample{}, err
	}

	tol := s.cfg.Tolerance.Seconds()
	for i := 0; i < s.cfg.MaxRefine && b-a > tol; i++ {
		if fc.el() > fd.el() {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			if fc, err = at(c); err != nil {
				return sample{}, err
			}
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			if fd, err = at(d); err != nil {
				return sample{}, err
			}
		}
	}
	if _, err := at((a + b) / 2); err != nil {
		return sample{}, err
	}
	return best, nil
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
