package compliance

import (
	"fmt"

	"github.com/kirillkom/label-compliance/internal/core/domain"
)

// RevisionPair names the two documents compared for one revised upload.
type RevisionPair struct {
	PreviousAnalysisID string
	CurrentAnalysisID  string
}

// ActiveAnalysisID returns the document that is current at the end of
// history: the last revised upload, or the session origin.
func ActiveAnalysisID(session domain.Session, history []domain.Iteration) string {
	active := session.OriginAnalysisID
	for _, it := range history {
		if it.Kind == domain.IterationRevisedUpload && it.Payload.AnalysisID != "" {
			active = it.Payload.AnalysisID
		}
	}
	return active
}

// ResolveRevision pairs the revised upload at history[index] with the document
// active immediately before it. It never looks further back than one step.
func ResolveRevision(session domain.Session, history []domain.Iteration, index int) (RevisionPair, error) {
	if index < 0 || index >= len(history) {
		return RevisionPair{}, domain.WrapError(domain.ErrInvalidInput, "resolve revision",
			fmt.Errorf("iteration index %d out of range", index))
	}
	target := history[index]
	if target.Kind != domain.IterationRevisedUpload {
		return RevisionPair{}, domain.WrapError(domain.ErrInvalidInput, "resolve revision",
			fmt.Errorf("iteration %d is %s, not %s", index, target.Kind, domain.IterationRevisedUpload))
	}
	return RevisionPair{
		PreviousAnalysisID: ActiveAnalysisID(session, history[:index]),
		CurrentAnalysisID:  target.Payload.AnalysisID,
	}, nil
}

// LatestRevisionIndex returns the index of the last revised upload, or -1.
func LatestRevisionIndex(history []domain.Iteration) int {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Kind == domain.IterationRevisedUpload {
			return i
		}
	}
	return -1
}
