package transcriber

import "errors"

// FatalRecognitionError marks an error that will recur for every segment
// (missing binary or model, rejected credentials). The session stops on it.
type FatalRecognitionError struct {
	Err error
}

func (e *FatalRecognitionError) Error() string {
	if e == nil || e.Err == nil {
		return "fatal recognition error"
	}
	return e.Err.Error()
}

func (e *FatalRecognitionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func NewFatalRecognitionError(err error) error {
	if err == nil {
		return nil
	}
	return &FatalRecognitionError{Err: err}
}

func IsFatalRecognitionError(err error) bool {
	var fatal *FatalRecognitionError
	return errors.As(err, &fatal)
}
