package domain

import (
	"fmt"
	"strings"
	"time"
)

type IterationKind string

const (
	IterationChat          IterationKind = "chat"
	IterationTextCheck     IterationKind = "text_check"
	IterationRevisedUpload IterationKind = "revised_upload"
)

func (k IterationKind) Valid() bool {
	switch k {
	case IterationChat, IterationTextCheck, IterationRevisedUpload:
		return true
	default:
		return false
	}
}

// Session binds one originating analysis to all follow-up activity.
type Session struct {
	ID               string    `json:"id"`
	OriginAnalysisID string    `json:"origin_analysis_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// Iteration is one immutable entry of a session log. Seq is assigned by the
// store at append time and defines history order.
type Iteration struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id"`
	Seq       int64            `json:"seq"`
	Kind      IterationKind    `json:"kind"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   IterationPayload `json:"payload"`
}

type IterationPayload struct {
	Message    string `json:"message,omitempty"`
	Response   string `json:"response,omitempty"`
	LabelText  string `json:"label_text,omitempty"`
	AnalysisID string `json:"analysis_id,omitempty"`
	Note       string `json:"note,omitempty"`
}

// Validate checks that the payload carries what its kind requires.
func (it Iteration) Validate() error {
	if !it.Kind.Valid() {
		return WrapError(ErrInvalidInput, "validate iteration", fmt.Errorf("unknown kind %q", it.Kind))
	}
	switch it.Kind {
	case IterationChat:
		if strings.TrimSpace(it.Payload.Message) == "" {
			return WrapError(ErrInvalidInput, "validate iteration", fmt.Errorf("chat iteration requires message"))
		}
	case IterationTextCheck:
		if strings.TrimSpace(it.Payload.LabelText) == "" {
			return WrapError(ErrInvalidInput, "validate iteration", fmt.Errorf("text_check iteration requires label_text"))
		}
	case IterationRevisedUpload:
		if strings.TrimSpace(it.Payload.AnalysisID) == "" {
			return WrapError(ErrInvalidInput, "validate iteration", fmt.Errorf("revised_upload iteration requires analysis_id"))
		}
	}
	return nil
}

// TextCheckResult is the outcome of re-checking alternative label text
// against the session's active document.
type TextCheckResult struct {
	Iteration  Iteration           `json:"iteration"`
	Document   *ComplianceDocument `json:"document"`
	Comparison ComparisonResult    `json:"comparison"`
}
