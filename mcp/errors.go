package mcp

import (
	"errors"
	"fmt"

	"github.com/c360studio/edgarbridge/source/weburl"
)

// InvalidURLError reports a server URL or request URL that failed the
// local-service policy.
type InvalidURLError struct {
	URL    string
	Reason weburl.Reason
	Detail string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid MCP server URL %q: %s: %s", e.URL, e.Reason, e.Detail)
}

func newInvalidURLError(rawURL string, res weburl.Result) error {
	return &InvalidURLError{URL: rawURL, Reason: res.Reason, Detail: res.Detail}
}

// ConnectionError reports an MCP server that is unreachable or answered
// with a failure status.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cannot connect to MCP server at %s", e.URL)
	}
	return fmt.Sprintf("cannot connect to MCP server at %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NewConnectionError wraps err as a connection failure against serverURL.
func NewConnectionError(serverURL string, err error) error {
	return &ConnectionError{URL: serverURL, Err: err}
}

// ContentRetrievalError reports a session that was reachable but could not
// return page content. Status is zero for transport failures.
type ContentRetrievalError struct {
	Status int
	Body   string
	Err    error
}

func (e *ContentRetrievalError) Error() string {
	switch {
	case e.Err != nil && e.Status == 0:
		return fmt.Sprintf("content retrieval failed: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("content retrieval failed: status %d: %v", e.Status, e.Err)
	default:
		return fmt.Sprintf("content retrieval failed: status %d: %s", e.Status, e.Body)
	}
}

func (e *ContentRetrievalError) Unwrap() error {
	return e.Err
}

// IsConnectionError returns true if err is or wraps a *ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// IsContentRetrievalError returns true if err is or wraps a
// *ContentRetrievalError.
func IsContentRetrievalError(err error) bool {
	var contentErr *ContentRetrievalError
	return errors.As(err, &contentErr)
}
