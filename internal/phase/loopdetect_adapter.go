package phase

import "codenerd/internal/loopdetect"

// LoopDetectorAdapter adapts a *loopdetect.Detector to the Runner's
// LoopChecker interface, translating loopdetect.Verdict into the
// package-local LoopVerdict shape.
type LoopDetectorAdapter struct {
	Detector *loopdetect.Detector
}

// Observe delegates to the underlying detector.
func (a LoopDetectorAdapter) Observe(phase, tool string, args map[string]any, output any, success bool) LoopVerdict {
	v := a.Detector.Observe(phase, tool, args, output, success)
	return LoopVerdict{
		Detected:      v.Detected,
		Kind:          v.Kind,
		Severity:      v.Severity,
		Suggestion:    v.Suggestion,
		MustIntervene: v.MustIntervene,
	}
}
