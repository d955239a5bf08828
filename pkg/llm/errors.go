package llm

import "fmt"

// APICallError is returned when a call to the vendor API fails, either at
// the HTTP level or because the vendor reported an error in its body.
type APICallError struct {
	Message         string
	URL             string
	StatusCode      int
	RequestBody     []byte
	ResponseHeaders map[string]string
	ResponseBody    []byte
	IsRetryable     bool
	Cause           error
}

func (e *APICallError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("api call failed (%d): %s", e.StatusCode, e.Message)
	}
	return "api call failed: " + e.Message
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// InvalidPromptError reports a prompt the adapter cannot translate.
type InvalidPromptError struct {
	Message string
	Index   int
}

func (e *InvalidPromptError) Error() string {
	return fmt.Sprintf("invalid prompt at message %d: %s", e.Index, e.Message)
}

// InvalidArgumentError reports an invalid call option.
type InvalidArgumentError struct {
	Argument string
	Message  string
	Cause    error
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Argument, e.Message)
}

func (e *InvalidArgumentError) Unwrap() error {
	return e.Cause
}
