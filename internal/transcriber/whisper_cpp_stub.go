//go:build !whisper_cpp

package transcriber

import "errors"

// NewWhisperCppRecognizer reports that in-process whisper.cpp was not
// compiled in. Rebuild with -tags whisper_cpp or use the whisper-cli provider.
func NewWhisperCppRecognizer(config Config) (Recognizer, error) {
	return nil, NewFatalRecognitionError(errors.New("whisper-cpp provider unavailable: built without the whisper_cpp tag"))
}
