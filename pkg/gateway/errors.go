package gateway

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
)

// StatusError reports a non-2xx response. Errors holds the service's
// validation payload when it sent one, keyed by field path.
type StatusError struct {
	StatusCode int
	Errors     map[string][]string
	Body       string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "<nil>"
	}
	text := http.StatusText(e.StatusCode)
	if text == "" {
		text = "unexpected status"
	}
	if len(e.Errors) > 0 {
		return fmt.Sprintf("gateway: %d %s (%d field errors)", e.StatusCode, text, len(e.Errors))
	}
	return fmt.Sprintf("gateway: %d %s", e.StatusCode, text)
}

// FieldPayload exposes the validation payload to the form controller.
func (e *StatusError) FieldPayload() map[string][]string {
	if e == nil {
		return nil
	}
	return e.Errors
}

func newStatusError(resp *http.Response) *StatusError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	statusErr := &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(raw)),
	}
	if len(raw) == 0 {
		return statusErr
	}

	var envelope struct {
		Errors json.RawMessage `json:"errors"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return statusErr
	}
	statusErr.Errors = decodeErrors(envelope.Errors)
	if len(statusErr.Errors) == 0 && envelope.Error != "" {
		statusErr.Errors = map[string][]string{"": {envelope.Error}}
	}
	return statusErr
}

// decodeErrors accepts {"field": ["msg"]} and {"field": "msg"}.
func decodeErrors(raw json.RawMessage) map[string][]string {
	if len(raw) == 0 {
		return nil
	}
	var many map[string][]string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	var single map[string]string
	if err := json.Unmarshal(raw, &single); err == nil {
		out := make(map[string][]string, len(single))
		for key, msg := range single {
			out[key] = []string{msg}
		}
		return out
	}
	return nil
}
