package dataset

import "math"

// Window is a time slice of a session, in seconds.
type Window struct {
	Session string  `json:"session"`
	Index   int     `json:"index"`
	T0      float64 `json:"t0"`
	T1      float64 `json:"t1"`
}

// windows cuts [0, duration) into slices of length w advancing by w-overlap.
// The last window is clipped to the session end. An overlap that does not
// leave a positive step yields no windows.
func windows(session string, duration, w, overlap float64) []Window {
	step := w - overlap
	if duration <= 0 || w <= 0 || step <= 0 {
		return nil
	}
	var out []Window
	for t0 := 0.0; t0 < duration; t0 += step {
		out = append(out, Window{Session: session, Index: len(out), T0: t0, T1: math.Min(t0+w, duration)})
		if t0+w >= duration {
			break
		}
	}
	return out
}

// frameRange returns the frames of a recording at fps that fall inside w,
// limited to max frames.
func frameRange(w Window, fps float64, total, max int) (lo, hi int) {
	lo = int(math.Floor(w.T0 * fps))
	hi = int(math.Floor(w.T1 * fps))
	if hi > total {
		hi = total
	}
	if lo > hi {
		lo = hi
	}
	if hi-lo > max {
		hi = lo + max
	}
	return
}
