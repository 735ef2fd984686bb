package ipc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"codenerd/internal/model"
)

// objectiveHeading matches "## <id> — <title>" (an em-dash or a plain
// hyphen separator, to tolerate hand-edited files).
var objectiveHeading = regexp.MustCompile(`(?m)^##\s+(\S+)\s+(?:—|-)\s+(.+?)\s*$`)

// metaLine matches "key: value" metadata lines directly under a heading.
var metaLine = regexp.MustCompile(`^(status|priority|dependencies):\s*(.*)$`)

// checkboxLine matches a markdown checkbox list item.
var checkboxLine = regexp.MustCompile(`^-\s*\[([ xX])\]\s*(.+)$`)

// dimensionLine matches "temporal: 0.50" style lines in the Dimensional
// Profile section.
var dimensionLine = regexp.MustCompile(`^(temporal|functional|data|state|error|context|integration):\s*([0-9.]+)$`)

// checkedPrefix tags a completed Success Criteria item in-memory, since
// model.ObjectiveRecord.SuccessCriteria is a plain string list with no
// separate checked flag; round-tripping the checkbox state this way
// keeps ParseObjectiveFile/RenderObjectiveFile inverse (R1) without
// widening the shared data model for one field.
const checkedPrefix = "[x] "

// ParseObjectiveFile parses one *_OBJECTIVES.md file's raw content into
// ObjectiveRecords, in file order. Unparseable blocks are skipped
// rather than failing the whole file, so a hand-edited typo in one
// objective doesn't lose the rest.
func ParseObjectiveFile(raw string, level model.ObjectiveLevel) []model.ObjectiveRecord {
	headingLocs := objectiveHeading.FindAllStringSubmatchIndex(raw, -1)
	records := make([]model.ObjectiveRecord, 0, len(headingLocs))

	for i, loc := range headingLocs {
		id := raw[loc[2]:loc[3]]
		title := strings.TrimSpace(raw[loc[4]:loc[5]])
		blockEnd := len(raw)
		if i+1 < len(headingLocs) {
			blockEnd = headingLocs[i+1][0]
		}
		block := raw[loc[1]:blockEnd]

		rec := model.ObjectiveRecord{ID: id, Level: level, Title: title}
		parseObjectiveBlock(block, &rec)
		records = append(records, rec)
	}
	return records
}

func parseObjectiveBlock(block string, rec *model.ObjectiveRecord) {
	section := ""
	for _, line := range strings.Split(block, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "### "):
			section = strings.TrimSpace(strings.TrimPrefix(trimmed, "### "))
			continue
		case section == "" && trimmed != "":
			if m := metaLine.FindStringSubmatch(trimmed); m != nil {
				applyMeta(rec, m[1], m[2])
				continue
			}
		}

		switch section {
		case "Description":
			if trimmed != "" {
				if rec.Description != "" {
					rec.Description += "\n"
				}
				rec.Description += trimmed
			}
		case "Success Criteria":
			if m := checkboxLine.FindStringSubmatch(trimmed); m != nil {
				item := strings.TrimSpace(m[2])
				if strings.EqualFold(m[1], "x") {
					item = checkedPrefix + item
				}
				rec.SuccessCriteria = append(rec.SuccessCriteria, item)
			}
		case "Dimensional Profile":
			if m := dimensionLine.FindStringSubmatch(trimmed); m != nil {
				v, _ := strconv.ParseFloat(m[2], 64)
				applyDimension(&rec.DimensionalProfile, m[1], v)
			}
		case "Tasks":
			if m := checkboxLine.FindStringSubmatch(trimmed); m != nil {
				rec.Tasks = append(rec.Tasks, strings.TrimSpace(m[2]))
			} else if strings.HasPrefix(trimmed, "- ") {
				rec.Tasks = append(rec.Tasks, strings.TrimSpace(strings.TrimPrefix(trimmed, "- ")))
			}
		}
	}
}

func applyMeta(rec *model.ObjectiveRecord, key, value string) {
	value = strings.TrimSpace(value)
	switch key {
	case "status":
		rec.Status = value
	case "priority":
		rec.Priority = model.Priority(strings.ToUpper(value))
	case "dependencies":
		if value == "" || value == "none" {
			return
		}
		for _, dep := range strings.Split(value, ",") {
			dep = strings.TrimSpace(dep)
			if dep != "" {
				rec.Dependencies = append(rec.Dependencies, dep)
			}
		}
	}
}

func applyDimension(p *model.DimensionalProfile, key string, v float64) {
	switch key {
	case "temporal":
		p.Temporal = v
	case "functional":
		p.Functional = v
	case "data":
		p.Data = v
	case "state":
		p.State = v
	case "error":
		p.Error = v
	case "context":
		p.Context = v
	case "integration":
		p.Integration = v
	}
}

// RenderObjectiveFile serializes records back to the markdown format
// described in spec.md §6, preserving order. Parse(Render(x)) == x for
// every field (R1).
func RenderObjectiveFile(records []model.ObjectiveRecord) string {
	var b strings.Builder
	for i, rec := range records {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s — %s\n", rec.ID, rec.Title)
		fmt.Fprintf(&b, "status: %s\n", rec.Status)
		fmt.Fprintf(&b, "priority: %s\n", rec.Priority)
		if len(rec.Dependencies) > 0 {
			fmt.Fprintf(&b, "dependencies: %s\n", strings.Join(rec.Dependencies, ", "))
		} else {
			b.WriteString("dependencies: none\n")
		}
		b.WriteString("\n### Description\n\n")
		b.WriteString(rec.Description)
		b.WriteString("\n\n### Success Criteria\n\n")
		for _, c := range rec.SuccessCriteria {
			if strings.HasPrefix(c, checkedPrefix) {
				fmt.Fprintf(&b, "- [x] %s\n", strings.TrimPrefix(c, checkedPrefix))
			} else {
				fmt.Fprintf(&b, "- [ ] %s\n", c)
			}
		}
		b.WriteString("\n### Dimensional Profile\n\n")
		fmt.Fprintf(&b, "temporal: %.2f\n", rec.DimensionalProfile.Temporal)
		fmt.Fprintf(&b, "functional: %.2f\n", rec.DimensionalProfile.Functional)
		fmt.Fprintf(&b, "data: %.2f\n", rec.DimensionalProfile.Data)
		fmt.Fprintf(&b, "state: %.2f\n", rec.DimensionalProfile.State)
		fmt.Fprintf(&b, "error: %.2f\n", rec.DimensionalProfile.Error)
		fmt.Fprintf(&b, "context: %.2f\n", rec.DimensionalProfile.Context)
		fmt.Fprintf(&b, "integration: %.2f\n", rec.DimensionalProfile.Integration)
		b.WriteString("\n### Tasks\n\n")
		for _, t := range rec.Tasks {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
