package phase

import (
	"sort"
	"strings"
)

// jaccardDuplicateThreshold is the similarity above which a proposed
// planning task is rejected as a duplicate of a live task (spec.md
// §4.2a: "a proposed task is rejected if another live task has the
// same normalized file set and a token-normalized description whose
// Jaccard similarity is >= 0.8").
const jaccardDuplicateThreshold = 0.8

// candidateTask is the minimal shape planning's duplicate check needs
// from both a proposed and an existing task.
type candidateTask struct {
	Files       []string
	Description string
}

// IsDuplicatePlanningTask reports whether proposed duplicates any of
// existing by the planning phase's file-set-plus-Jaccard rule.
func IsDuplicatePlanningTask(proposed candidateTask, existing []candidateTask) bool {
	proposedFiles := normalizeFileSet(proposed.Files)
	proposedTokens := tokenSet(proposed.Description)
	for _, other := range existing {
		if !sameFileSet(proposedFiles, normalizeFileSet(other.Files)) {
			continue
		}
		if jaccard(proposedTokens, tokenSet(other.Description)) >= jaccardDuplicateThreshold {
			return true
		}
	}
	return false
}

func normalizeFileSet(files []string) []string {
	out := append([]string(nil), files...)
	for i := range out {
		out[i] = strings.ToLower(strings.TrimSpace(out[i]))
	}
	sort.Strings(out)
	return out
}

func sameFileSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func tokenSet(description string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(description)) {
		tok = strings.Trim(tok, ".,;:!?()\"'")
		if tok == "" {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// CoerceQAToolName fills in a blank tool-call name for the qa phase by
// inspecting its arguments (spec.md §4.2a / B1): presence of
// issue_type/description/line_number implies report_issue; only
// filepath/notes implies approve_code; otherwise approve_code.
func CoerceQAToolName(name string, args map[string]any) string {
	if name != "" {
		return name
	}
	if hasAny(args, "issue_type", "description", "line_number") {
		return "report_issue"
	}
	return "approve_code"
}

func hasAny(args map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := args[k]; ok {
			return true
		}
	}
	return false
}
