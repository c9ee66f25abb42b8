package component

import "fmt"

// Reason classifies a structural validation failure with a stable code.
type Reason string

const (
	ReasonTooManyNodes       Reason = "too_many_nodes"
	ReasonTextBudgetExceeded Reason = "text_budget_exceeded"
	ReasonGalleryBudget      Reason = "gallery_budget_exceeded"
	ReasonIllegalContainment Reason = "illegal_containment"
	ReasonMissingAccessory   Reason = "missing_accessory"
	ReasonUnknownAttachment  Reason = "unknown_attachment"
	ReasonInvalidContent     Reason = "invalid_content"
)

// StructuralError reports why a component tree was rejected and which node
// caused it. It is always recoverable: the single request is rejected, the
// process keeps running.
type StructuralError struct {
	Reason Reason
	Path   string // offending node, e.g. "children[0].children[2]"
	Detail string
}

func (e *StructuralError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid component tree (%s): %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("invalid component tree (%s) at %s: %s", e.Reason, e.Path, e.Detail)
}

func structuralErr(reason Reason, path, format string, args ...interface{}) *StructuralError {
	return &StructuralError{Reason: reason, Path: path, Detail: fmt.Sprintf(format, args...)}
}
