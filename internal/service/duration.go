package service

import (
	"regexp"
	"strconv"

	"github.com/davidrioja/reelforge/internal/core"
)

// Timing marker patterns in generated scene code. Inference reads the
// markers, never executes anything.
var (
	// interpolate(frame, [0, 90], ...) - the range end is the scene length.
	interpolateRe = regexp.MustCompile(`interpolate\s*\(\s*frame\s*,\s*\[\s*\d+\s*,\s*(\d+)\s*\]`)
	// frame < 120 style guards.
	frameThresholdRe = regexp.MustCompile(`frame\s*<=?\s*(\d+)`)
	// <Sequence from={30} durationInFrames={60}> - delay plus duration.
	sequenceRe = regexp.MustCompile(`<Sequence\b[^>]*?durationInFrames=\{\s*(\d+)\s*\}`)
	sequenceFromRe = regexp.MustCompile(`from=\{\s*(\d+)\s*\}[^>]*?durationInFrames=\{\s*(\d+)\s*\}`)
)

// InferDuration resolves a scene's duration from, in priority order: an
// explicit tool-supplied frame count, animation time-range markers,
// frame-threshold guards, delay+duration sums in sequence markers, and
// finally the documented default. The confidence tag is diagnostic only.
func InferDuration(code string, toolFrames int) (core.Duration, core.DurationSource, core.Confidence) {
	if toolFrames > 0 {
		return core.Duration{Frames: toolFrames, FPS: core.DefaultFPS},
			core.DurationFromTool, core.ConfidenceHigh
	}

	if frames := maxCapture(interpolateRe, code, 1); frames > 0 {
		return core.Duration{Frames: frames, FPS: core.DefaultFPS},
			core.DurationFromInterpolate, core.ConfidenceHigh
	}

	if frames := maxCapture(frameThresholdRe, code, 1); frames > 0 {
		return core.Duration{Frames: frames, FPS: core.DefaultFPS},
			core.DurationFromFrameThreshold, core.ConfidenceMedium
	}

	if frames := maxSequenceEnd(code); frames > 0 {
		return core.Duration{Frames: frames, FPS: core.DefaultFPS},
			core.DurationFromSequence, core.ConfidenceMedium
	}

	return core.DefaultDuration(), core.DurationFromDefault, core.ConfidenceLow
}

// maxCapture returns the largest integer captured by group idx across all
// matches, or 0 when nothing matches.
func maxCapture(re *regexp.Regexp, code string, idx int) int {
	max := 0
	for _, m := range re.FindAllStringSubmatch(code, -1) {
		if len(m) <= idx {
			continue
		}
		n, err := strconv.Atoi(m[idx])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max
}

// maxSequenceEnd returns the furthest frame any sequence marker reaches,
// summing its delay and duration when both are declared.
func maxSequenceEnd(code string) int {
	max := 0
	for _, m := range sequenceRe.FindAllStringSubmatchIndex(code, -1) {
		tag := code[m[0]:m[1]]
		end := 0
		if fm := sequenceFromRe.FindStringSubmatch(tag); fm != nil {
			from, _ := strconv.Atoi(fm[1])
			dur, _ := strconv.Atoi(fm[2])
			end = from + dur
		} else {
			dur, _ := strconv.Atoi(code[m[2]:m[3]])
			end = dur
		}
		if end > max {
			max = end
		}
	}
	return max
}
