package pipeline

import "errors"

var (
	// ErrQuestionRequired is returned for an empty or whitespace-only question.
	ErrQuestionRequired = errors.New("question is required")
	// ErrStoreConnection wraps sampling failures. Nothing is recorded.
	ErrStoreConnection = errors.New("store connection failed")
	// ErrCompletion wraps completion service failures. Nothing is recorded.
	ErrCompletion = errors.New("completion service failed")
)
