// Package qa provides the two tools the qa phase calls to render its
// verdict on a QA_PENDING file: report_issue to flag a defect, or
// approve_code to pass it through. internal/phase's qa_verdict result
// handler reads these calls back off the invocation to decide the
// owning task's next status (spec.md §4.2a).
//
// Tools:
//   - report_issue: Flag a defect found in a file under review
//   - approve_code: Pass a file under review with no defects found
package qa
