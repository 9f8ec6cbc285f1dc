package graph

import "errors"

var (
	// ErrExtractionParse marks a model response that held no usable
	// knowledge object. It wraps the underlying decode error.
	ErrExtractionParse = errors.New("knowledge extraction: unparseable model response")
	// ErrLLMService marks a failed call to the language model.
	ErrLLMService = errors.New("language model call failed")
)
