package tools

import "fmt"

// APIError is returned when an upstream HTTP API answers with a non-2xx status.
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s api error: status=%d body=%s", e.Service, e.StatusCode, e.Body)
}
