package loopdetect

import "testing"

func TestObserveNoVerdictBelowThreshold(t *testing.T) {
	d := NewDetector()
	args := map[string]any{"path": "a.py", "old": "x", "new": "y"}
	for i := 0; i < 2; i++ {
		v := d.Observe("debugging", "str_replace", args, nil, true)
		if v.Detected {
			t.Fatalf("call %d: unexpected verdict before threshold: %+v", i, v)
		}
	}
}

func TestActionRepeatFiresAtThreshold(t *testing.T) {
	d := NewDetector()
	args := map[string]any{"path": "a.py", "old": "x", "new": "y"}
	var last struct {
		Detected bool
		Kind     string
	}
	for i := 0; i < 3; i++ {
		v := d.Observe("debugging", "str_replace", args, nil, false)
		last.Detected, last.Kind = v.Detected, v.Kind
	}
	if !last.Detected || last.Kind != string(KindActionRepeat) {
		t.Errorf("expected action_repeat at 3rd identical call, got %+v", last)
	}
}

func TestActionRepeatIgnoresDifferentArguments(t *testing.T) {
	d := NewDetector()
	for i := 0; i < 5; i++ {
		args := map[string]any{"path": "a.py", "old": i, "new": i + 1}
		v := d.Observe("debugging", "str_replace", args, nil, true)
		if v.Detected && v.Kind == string(KindActionRepeat) {
			t.Fatalf("call %d: distinct arguments must not trigger action_repeat, got %+v", i, v)
		}
	}
}

func TestModificationLoopFiresAtFourForNonCodingPhase(t *testing.T) {
	d := NewDetector()
	var v Verdict
	for i := 0; i < 4; i++ {
		v = d.Observe("refactoring", "write_file", map[string]any{"path": "a.py", "content": "v" + string(rune('0'+i))}, nil, true)
	}
	if !v.Detected || v.Kind != string(KindModificationLoop) {
		t.Errorf("expected modification_loop at 4th write to same file, got %+v", v)
	}
}

func TestModificationLoopSuppressedInCodingBelowFour(t *testing.T) {
	d := NewDetector()
	var v Verdict
	for i := 0; i < 3; i++ {
		v = d.Observe("coding", "write_file", map[string]any{"path": "a.py", "content": "v" + string(rune('0'+i))}, nil, true)
	}
	if v.Detected {
		t.Errorf("coding phase must not flag modification_loop before its own threshold: %+v", v)
	}
}

func TestModificationLoopAcrossManyDistinctFilesInCodingIsNotFlagged(t *testing.T) {
	d := NewDetector()
	for i := 0; i < 10; i++ {
		path := string(rune('a'+i)) + ".py"
		v := d.Observe("coding", "write_file", map[string]any{"path": path, "content": "v"}, nil, true)
		if v.Detected {
			t.Fatalf("writing 10 distinct files must never be a modification_loop, got %+v at file %s", v, path)
		}
	}
}

func TestConversationLoopFiresOnRepeatedReadWithNoAction(t *testing.T) {
	d := NewDetector()
	var v Verdict
	for i := 0; i < 3; i++ {
		v = d.Observe("investigation", "read_file", map[string]any{"path": "a.py", "start_line": i}, nil, true)
	}
	if !v.Detected || v.Kind != string(KindConversationLoop) {
		t.Errorf("expected conversation_loop after 3 reads with no action, got %+v", v)
	}
}

func TestConversationLoopResetsAfterWrite(t *testing.T) {
	d := NewDetector()
	d.Observe("investigation", "read_file", map[string]any{"path": "a.py", "start_line": 1}, nil, true)
	d.Observe("investigation", "read_file", map[string]any{"path": "a.py", "start_line": 2}, nil, true)
	d.Observe("investigation", "write_file", map[string]any{"path": "a.py", "content": "x"}, nil, true)
	v := d.Observe("investigation", "read_file", map[string]any{"path": "a.py", "start_line": 3}, nil, true)
	if v.Detected {
		t.Errorf("an intervening write must reset the conversation_loop read count, got %+v", v)
	}
}

func TestCircularDependencyFiresOnCycleOutputRegardlessOfCount(t *testing.T) {
	d := NewDetector()
	v := d.Observe("refactoring", "detect_circular_dependency", map[string]any{"package": "internal/foo"}, map[string]any{"cycle_detected": true}, true)
	if !v.Detected || v.Kind != string(KindCircularDependency) || v.Severity != string(SeverityCritical) {
		t.Errorf("expected critical circular_dependency on first cycle report, got %+v", v)
	}
	if !v.MustIntervene {
		t.Error("critical severity must always set MustIntervene")
	}
}

func TestCircularDependencyIgnoresCleanReport(t *testing.T) {
	d := NewDetector()
	v := d.Observe("refactoring", "detect_circular_dependency", map[string]any{"package": "internal/foo"}, map[string]any{"cycle_detected": false}, true)
	if v.Detected {
		t.Errorf("clean dependency report must not trigger a verdict, got %+v", v)
	}
}

func TestMustInterveneAfterThreeInterventionsSameKind(t *testing.T) {
	d := NewDetector()
	var lastMustIntervene bool
	// Each round of 3 identical calls re-fires action_repeat (medium
	// severity); the third such firing in this phase invocation must
	// escalate to must_intervene even without critical severity.
	args := map[string]any{"path": "a.py"}
	for round := 0; round < 3; round++ {
		var v Verdict
		for i := 0; i < 3; i++ {
			v = d.Observe("debugging", "run_tests", args, nil, false)
		}
		lastMustIntervene = v.MustIntervene
	}
	if !lastMustIntervene {
		t.Error("expected must_intervene after three action_repeat verdicts in one invocation")
	}
}

func TestResetInvocationClearsInterventionCounters(t *testing.T) {
	d := NewDetector()
	args := map[string]any{"path": "a.py"}
	for round := 0; round < 2; round++ {
		for i := 0; i < 3; i++ {
			d.Observe("debugging", "run_tests", args, nil, false)
		}
	}
	d.ResetInvocation("debugging")
	var v Verdict
	for i := 0; i < 3; i++ {
		v = d.Observe("debugging", "run_tests", args, nil, false)
	}
	if v.MustIntervene {
		t.Error("ResetInvocation should clear prior intervention counts")
	}
}

func TestPatternRepetitionFiresOnRepeatedTwoStepSequence(t *testing.T) {
	d := NewDetector()
	seq := []string{"read_file", "run_tests", "read_file", "run_tests"}
	var v Verdict
	for _, tool := range seq {
		v = d.Observe("qa", tool, map[string]any{"path": "a.py"}, nil, true)
	}
	if !v.Detected || v.Kind != string(KindPatternRepetition) {
		t.Errorf("expected pattern_repetition after read_file->run_tests repeats, got %+v", v)
	}
}

func TestSignatureIsOrderIndependent(t *testing.T) {
	a := signature(map[string]any{"x": 1, "y": 2})
	b := signature(map[string]any{"y": 2, "x": 1})
	if a != b {
		t.Errorf("signature should not depend on map iteration order: %q vs %q", a, b)
	}
}
