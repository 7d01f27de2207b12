// Package client is a Go client for the WOD leaderboard HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/wod-leaderboard/internal/model"
	"github.com/iliyamo/wod-leaderboard/internal/scoring"
	"github.com/iliyamo/wod-leaderboard/internal/service"
)

// APIError is a non-2xx response. Message is the server's "error" field.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

// IsForbidden reports whether err is a 403 from the API.
func IsForbidden(err error) bool { return hasStatus(err, http.StatusForbidden) }

func hasStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == status
}

// Client talks to one server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for baseURL, e.g. "http://localhost:3001".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateWorkout creates a workout and returns it with its owner-token.
func (c *Client) CreateWorkout(ctx context.Context, in service.CreateWorkoutInput) (*model.Workout, string, error) {
	var out struct {
		Workout    *model.Workout `json:"workout"`
		OwnerToken string         `json:"ownerToken"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/workouts", in, &out); err != nil {
		return nil, "", err
	}
	return out.Workout, out.OwnerToken, nil
}

// ListWorkouts lists workouts; dateFilter may be empty.
func (c *Client) ListWorkouts(ctx context.Context, dateFilter string) ([]*model.Workout, error) {
	path := "/api/workouts"
	if dateFilter != "" {
		path += "?dateFilter=" + url.QueryEscape(dateFilter)
	}
	var out struct {
		Workouts []*model.Workout `json:"workouts"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Workouts, nil
}

// GetWorkout fetches one workout.
func (c *Client) GetWorkout(ctx context.Context, id string) (*model.Workout, error) {
	var out struct {
		Workout *model.Workout `json:"workout"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/workouts/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out.Workout, nil
}

// DeleteWorkout deletes a workout with its owner-token.
func (c *Client) DeleteWorkout(ctx context.Context, id, ownerToken string) error {
	body := map[string]string{"ownerToken": ownerToken}
	return c.do(ctx, http.MethodDelete, "/api/workouts/"+url.PathEscape(id), body, nil)
}

// WorkoutTypes fetches the workout type table.
func (c *Client) WorkoutTypes(ctx context.Context) ([]model.TypeConfig, error) {
	var out struct {
		Types []model.TypeConfig `json:"types"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/workout-types", nil, &out); err != nil {
		return nil, err
	}
	return out.Types, nil
}

// SubmitResult posts a result and returns it with its result-token.
func (c *Client) SubmitResult(ctx context.Context, in service.SubmitResultInput) (*model.Result, string, error) {
	var out struct {
		Result      *model.Result `json:"result"`
		ResultToken string        `json:"resultToken"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/results", in, &out); err != nil {
		return nil, "", err
	}
	return out.Result, out.ResultToken, nil
}

// Leaderboard fetches a workout's ranked results; gender may be empty.
func (c *Client) Leaderboard(ctx context.Context, workoutID, gender string) ([]scoring.Standing, error) {
	path := "/api/results/" + url.PathEscape(workoutID)
	if gender != "" {
		path += "?gender=" + url.QueryEscape(gender)
	}
	var out struct {
		Results []scoring.Standing `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// UpdateResult applies a partial update with the result-token.
func (c *Client) UpdateResult(ctx context.Context, id, resultToken string, in service.UpdateResultInput) (*model.Result, error) {
	body := struct {
		ResultToken string `json:"resultToken"`
		service.UpdateResultInput
	}{resultToken, in}
	var out struct {
		Result *model.Result `json:"result"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/results/"+url.PathEscape(id), body, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// DeleteResult deletes a result with its result-token.
func (c *Client) DeleteResult(ctx context.Context, id, resultToken string) error {
	body := map[string]string{"resultToken": resultToken}
	return c.do(ctx, http.MethodDelete, "/api/results/"+url.PathEscape(id), body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			apiErr.Message = e.Error
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
