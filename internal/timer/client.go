package timer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/focuse/focus-server-go/internal/errors"
	"github.com/focuse/focus-server-go/internal/model"
	"github.com/focuse/focus-server-go/internal/service"
)

// NetworkError marks a request that never produced an HTTP response:
// timeouts, DNS failures, dead links. The reconciler folds these into the
// offline flag instead of surfacing them.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// APIError is a decoded server rejection, carrying the taxonomy code.
type APIError struct {
	Status  int
	Code    apperrors.ErrorCode
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (http %d)", e.Code, e.Message, e.Status)
}

// Client is a Go client for the session API. It doubles as the
// reconciler's SessionSource.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ SessionSource = (*Client)(nil)

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type createSessionRequest struct {
	TaskID   *string `json:"taskId,omitempty"`
	Duration int     `json:"duration"`
}

type completeSessionRequest struct {
	ActualDuration *int `json:"actualDuration,omitempty"`
}

type failSessionRequest struct {
	Reason model.FailReason `json:"reason"`
}

func (c *Client) CreateSession(ctx context.Context, taskID *string, durationMinutes int) (*model.Session, error) {
	var session model.Session
	err := c.do(ctx, http.MethodPost, "/v1/sessions", createSessionRequest{
		TaskID:   taskID,
		Duration: durationMinutes,
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ActiveSession returns the user's in-flight session, or nil when there is
// none. Called on startup to restore a timer after a crash or reinstall.
func (c *Client) ActiveSession(ctx context.Context) (*model.Session, error) {
	var session model.Session
	err := c.do(ctx, http.MethodGet, "/v1/sessions/active", nil, &session)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	var session model.Session
	err := c.do(ctx, http.MethodGet, "/v1/sessions/"+sessionID, nil, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) PauseSession(ctx context.Context, sessionID string) (*model.Session, error) {
	var session model.Session
	err := c.do(ctx, http.MethodPut, "/v1/sessions/"+sessionID+"/pause", nil, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) ResumeSession(ctx context.Context, sessionID string) (*model.Session, error) {
	var session model.Session
	err := c.do(ctx, http.MethodPut, "/v1/sessions/"+sessionID+"/resume", nil, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) CompleteSession(ctx context.Context, sessionID string, actualDuration *int) (*model.Session, error) {
	var session model.Session
	err := c.do(ctx, http.MethodPut, "/v1/sessions/"+sessionID+"/complete", completeSessionRequest{
		ActualDuration: actualDuration,
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) FailSession(ctx context.Context, sessionID string, reason model.FailReason) (*model.Session, error) {
	var session model.Session
	err := c.do(ctx, http.MethodPut, "/v1/sessions/"+sessionID+"/fail", failSessionRequest{
		Reason: reason,
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) Sync(ctx context.Context, req service.SyncRequest) (*service.SyncResponse, error) {
	var resp service.SyncResponse
	if err := c.do(ctx, http.MethodPost, "/v1/sync", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type errorResponse struct {
	Error string              `json:"error"`
	Code  apperrors.ErrorCode `json:"code"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	var req *http.Request
	var err error
	if reqBody != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Code: apperrors.ErrCodeInternal}
		var decoded errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err == nil {
			apiErr.Code = decoded.Code
			apiErr.Message = decoded.Error
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}
