package classify

import "errors"

// AutoClassifier picks a classifier from the shape of the error.
//
// Errors carrying an HTTPError anywhere in their chain use HTTPClassifier; everything else uses
// AlwaysRetryOnError.
type AutoClassifier struct{}

func (AutoClassifier) Classify(val any, err error) Outcome {
	var he HTTPError
	if errors.As(err, &he) {
		return HTTPClassifier{}.Classify(val, err)
	}
	return AlwaysRetryOnError{}.Classify(val, err)
}

// Chain tries each classifier in order and returns the first outcome that is not
// OutcomeUnknown. If every classifier abstains the outcome is AutoClassifier's.
type Chain []Classifier

func (c Chain) Classify(val any, err error) Outcome {
	for _, cl := range c {
		if cl == nil {
			continue
		}
		if out := cl.Classify(val, err); out.Kind != OutcomeUnknown {
			return out
		}
	}
	return AutoClassifier{}.Classify(val, err)
}
