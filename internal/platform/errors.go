package platform

import (
	"errors"
	"fmt"
)

// ErrUnavailable covers transport failures and timeouts talking to the
// platform. Always recoverable: the request is failed, the process keeps
// running.
var ErrUnavailable = errors.New("platform unavailable")

// RejectedError is a definitive rejection from the platform (4xx). The
// request should not be retried as-is.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("platform rejected request (status %d): %s", e.Status, e.Message)
}
