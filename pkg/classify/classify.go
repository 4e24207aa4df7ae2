// Package classify provides the pure outcome classifiers for the forum API
// response envelope. Classifiers are deterministic over (code, message) and
// perform no I/O, so they are exercisable with literal inputs.
package classify

import (
	"strings"

	"github.com/circletools/circle-batch-client/pkg/batch"
)

// Response codes used by the forum API envelope.
const (
	// CodeSuccess marks a completed action.
	CodeSuccess = 1

	// CodeNeutral accompanies business-level rejections; combined with an
	// already-done marker in the message it means the action had previously
	// been performed.
	CodeNeutral = 0
)

// alreadyMarkers are the message fragments the remote uses to report that a
// vote was previously cast. Matching any one of them turns a neutral-code
// response into AlreadyDone.
var alreadyMarkers = []string{"已投", "重复", "投过"}

// Vote classifies an action-call response.
//
//	code == 1                          -> Success
//	code == 0 and already-done marker  -> AlreadyDone
//	anything else                      -> Failed
func Vote(raw batch.RawResult) batch.Outcome {
	if raw.Err != nil {
		return batch.OutcomeFailed
	}

	switch raw.Code {
	case CodeSuccess:
		return batch.OutcomeSuccess
	case CodeNeutral:
		for _, marker := range alreadyMarkers {
			if strings.Contains(raw.Message, marker) {
				return batch.OutcomeAlreadyDone
			}
		}
	}
	return batch.OutcomeFailed
}

// Listing classifies a list-fetch response. An empty item list is the
// EndOfData terminal signal, telling the caller pagination is exhausted;
// it is not a failure.
func Listing(raw batch.RawResult) batch.Outcome {
	if raw.Err != nil || raw.Code != CodeSuccess {
		return batch.OutcomeFailed
	}
	if emptyListPayload(raw.Payload) {
		return batch.OutcomeEndOfData
	}
	return batch.OutcomeSuccess
}

// emptyListPayload reports whether the payload carries no items. The payload
// is either absent, JSON null, or a (possibly empty) array.
func emptyListPayload(payload []byte) bool {
	s := strings.TrimSpace(string(payload))
	switch s {
	case "", "null", "[]", `""`:
		return true
	}
	return false
}
