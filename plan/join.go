package plan

import "github.com/kevinawalsh/datalogdb"

// mergeFrames unions two frames, failing if they disagree on the value of
// any variable bound in both.
func mergeFrames(a, b datalog.Frame) (datalog.Frame, bool) {
	out := a.Clone()
	for k, v := range b {
		if existing, ok := out[k]; ok {
			if existing != v {
				return nil, false
			}
			continue
		}
		out[k] = v
	}
	return out, true
}

// Join is the cross join of a rule body's conjuncts: for each binding
// produced by the left side, it scans every binding on the right side,
// keeping only the ones that agree with the left on shared variables.
// When the right side is exhausted it resets the right side and advances
// the left, matching eval.rs's current_left/reset-right-on-exhaustion
// control flow.
type Join struct {
	left, right FramePlan
	currentLeft datalog.Frame
	haveLeft    bool
}

// NewJoin builds a Join of left and right.
func NewJoin(left, right FramePlan) *Join {
	return &Join{left: left, right: right}
}

func (j *Join) Next() (datalog.Frame, bool) {
	for {
		if !j.haveLeft {
			left, ok := j.left.Next()
			if !ok {
				return nil, false
			}
			j.currentLeft = left
			j.haveLeft = true
			j.right.Reset()
		}
		right, ok := j.right.Next()
		if !ok {
			j.haveLeft = false
			continue
		}
		if merged, ok := mergeFrames(j.currentLeft, right); ok {
			return merged, true
		}
	}
}

func (j *Join) Reset() {
	j.left.Reset()
	j.right.Reset()
	j.haveLeft = false
	j.currentLeft = nil
}
