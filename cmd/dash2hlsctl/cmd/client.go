package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// exit codes per the gateway's CLI contract: 0 success, 1 bad input,
// 2 server unreachable, 3 stream not found.
const (
	exitOK          = 0
	exitBadInput    = 1
	exitUnreachable = 2
	exitNotFound    = 3
)

// cliError carries the exit code its cause should produce.
type cliError struct {
	code int
	msg  string
}

func (e *cliError) Error() string { return e.msg }

func badInput(format string, args ...any) error {
	return &cliError{code: exitBadInput, msg: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error {
	return &cliError{code: exitNotFound, msg: fmt.Sprintf(format, args...)}
}

func unreachable(format string, args ...any) error {
	return &cliError{code: exitUnreachable, msg: fmt.Sprintf(format, args...)}
}

// exitCodeFor maps err to the CLI's documented exit code.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	if ce, ok := err.(*cliError); ok {
		return ce.code
	}
	return exitBadInput
}

type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) do(method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, badInput("encoding request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, badInput("building request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, unreachable("could not reach %s: %v", c.baseURL, err)
	}
	return resp, nil
}

func decodeJSON(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return notFound("not found")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return badInput("%s", apiErr.Error)
		}
		return badInput("server returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
