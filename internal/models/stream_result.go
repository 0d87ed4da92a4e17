package models

// StreamResult is one message of a streamed operation: a value, or the
// terminal error after which the stream closes.
type StreamResult[T any] struct {
	Value T
	Err   error
}

// Ok wraps a streamed value
func Ok[T any](v T) StreamResult[T] {
	return StreamResult[T]{Value: v}
}

// Fail wraps the terminal error of a stream
func Fail[T any](err error) StreamResult[T] {
	return StreamResult[T]{Err: err}
}
