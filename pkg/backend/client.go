package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klokku/workout-planner/pkg/calendar_date"
	log "github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-Id"

// TokenSource supplies the bearer token. An empty token means the request goes
// out without an Authorization header.
type TokenSource interface {
	Token() (string, error)
}

// RequestObserver is told about every finished backend request.
type RequestObserver interface {
	ObserveBackendRequest(method, endpoint string, status int, duration time.Duration)
}

type ClientImpl struct {
	baseURL  string
	http     *http.Client
	tokens   TokenSource
	observer RequestObserver
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, observer RequestObserver) *ClientImpl {
	return &ClientImpl{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		tokens:   tokens,
		observer: observer,
	}
}

type request struct {
	method      string
	path        string
	endpoint    string // path template used as metrics label
	body        io.Reader
	contentType string
}

func jsonRequest(method, path, endpoint string, payload any) (request, error) {
	req := request{method: method, path: path, endpoint: endpoint}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return request{}, fmt.Errorf("failed to encode request body: %w", err)
		}
		req.body = bytes.NewReader(body)
		req.contentType = "application/json"
	}
	return req, nil
}

func (c *ClientImpl) do(ctx context.Context, r request, out any) error {
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		log.Errorf("Failed to create request: %v", err)
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			log.Warnf("Failed to read backend token, sending request without it: %v", err)
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(r, 0, started)
		log.Errorf("Backend request %s %s failed: %v", r.method, r.path, err)
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, r.method, r.path, err)
	}
	defer resp.Body.Close()
	c.observe(r, resp.StatusCode, started)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upstreamErr := newUpstreamError(resp, requestID)
		if resp.StatusCode == http.StatusNotFound {
			log.Debugf("Backend %s %s: %v", r.method, r.path, upstreamErr)
		} else {
			log.Errorf("Backend %s %s: %v", r.method, r.path, upstreamErr)
		}
		return upstreamErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Errorf("Failed to decode backend response for %s %s: %v", r.method, r.path, err)
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}

func (c *ClientImpl) observe(r request, status int, started time.Time) {
	if c.observer != nil {
		c.observer.ObserveBackendRequest(r.method, r.endpoint, status, time.Since(started))
	}
}

func newUpstreamError(resp *http.Response, requestID string) *UpstreamError {
	if echoed := resp.Header.Get(requestIDHeader); echoed != "" {
		requestID = echoed
	}
	upstreamErr := &UpstreamError{Status: resp.StatusCode, RequestID: requestID}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		upstreamErr.Message = envelope.Error
		if upstreamErr.Message == "" {
			upstreamErr.Message = envelope.Message
		}
	} else {
		upstreamErr.Message = strings.TrimSpace(string(body))
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		upstreamErr.kind = ErrUnauthenticated
	case http.StatusNotFound:
		upstreamErr.kind = ErrNotFound
	}
	return upstreamErr
}

func (c *ClientImpl) ListWorkouts(ctx context.Context) ([]WorkoutDTO, error) {
	var response struct {
		Workouts []WorkoutDTO `json:"workouts"`
		Count    int          `json:"count"`
	}
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/workouts", endpoint: "/api/workouts"}, &response)
	if err != nil {
		return nil, err
	}
	return response.Workouts, nil
}

func (c *ClientImpl) GetWorkout(ctx context.Context, id int) (WorkoutDTO, error) {
	var workout WorkoutDTO
	path := fmt.Sprintf("/api/workouts/%d", id)
	if err := c.do(ctx, request{method: http.MethodGet, path: path, endpoint: "/api/workouts/{id}"}, &workout); err != nil {
		return WorkoutDTO{}, err
	}
	return workout, nil
}

func (c *ClientImpl) UpdateSelection(ctx context.Context, workoutID int, update SelectionUpdate) (SelectionDTO, error) {
	req, err := jsonRequest(http.MethodPut, fmt.Sprintf("/api/selections/%d", workoutID), "/api/selections/{id}", update)
	if err != nil {
		return SelectionDTO{}, err
	}
	var selection SelectionDTO
	if err := c.do(ctx, req, &selection); err != nil {
		return SelectionDTO{}, err
	}
	return selection, nil
}

func (c *ClientImpl) DeleteSelection(ctx context.Context, workoutID int) error {
	path := fmt.Sprintf("/api/selections/%d", workoutID)
	return c.do(ctx, request{method: http.MethodDelete, path: path, endpoint: "/api/selections/{id}"}, nil)
}

func (c *ClientImpl) ListCustomWorkouts(ctx context.Context) ([]CustomWorkoutDTO, error) {
	var response struct {
		CustomWorkouts []CustomWorkoutDTO `json:"customWorkouts"`
		Count          int                `json:"count"`
	}
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/custom-workouts", endpoint: "/api/custom-workouts"}, &response)
	if err != nil {
		return nil, err
	}
	return response.CustomWorkouts, nil
}

func (c *ClientImpl) CreateCustomWorkout(ctx context.Context, workout CustomWorkoutDTO) (CustomWorkoutDTO, error) {
	req, err := jsonRequest(http.MethodPost, "/api/custom-workouts", "/api/custom-workouts", workout)
	if err != nil {
		return CustomWorkoutDTO{}, err
	}
	var created CustomWorkoutDTO
	if err := c.do(ctx, req, &created); err != nil {
		return CustomWorkoutDTO{}, err
	}
	return created, nil
}

func (c *ClientImpl) UpdateCustomWorkout(ctx context.Context, id int, update CustomWorkoutUpdate) (CustomWorkoutDTO, error) {
	req, err := jsonRequest(http.MethodPut, fmt.Sprintf("/api/custom-workouts/%d", id), "/api/custom-workouts/{id}", update)
	if err != nil {
		return CustomWorkoutDTO{}, err
	}
	var updated CustomWorkoutDTO
	if err := c.do(ctx, req, &updated); err != nil {
		return CustomWorkoutDTO{}, err
	}
	return updated, nil
}

func (c *ClientImpl) DeleteCustomWorkout(ctx context.Context, id int) error {
	path := fmt.Sprintf("/api/custom-workouts/%d", id)
	return c.do(ctx, request{method: http.MethodDelete, path: path, endpoint: "/api/custom-workouts/{id}"}, nil)
}

func (c *ClientImpl) ImportWorkouts(ctx context.Context, filename string, csv io.Reader) (ImportResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to create upload: %w", err)
	}
	if _, err := io.Copy(part, csv); err != nil {
		return ImportResult{}, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := writer.Close(); err != nil {
		return ImportResult{}, fmt.Errorf("failed to finish upload: %w", err)
	}

	req := request{
		method:      http.MethodPost,
		path:        "/api/workouts/import",
		endpoint:    "/api/workouts/import",
		body:        &body,
		contentType: writer.FormDataContentType(),
	}
	var result ImportResult
	if err := c.do(ctx, req, &result); err != nil {
		return ImportResult{}, err
	}
	return result, nil
}

func (c *ClientImpl) DailyWeather(ctx context.Context, date calendar_date.CalendarDate) (DailyForecast, error) {
	var forecast DailyForecast
	path := "/api/weather/" + date.String()
	if err := c.do(ctx, request{method: http.MethodGet, path: path, endpoint: "/api/weather/{date}"}, &forecast); err != nil {
		return DailyForecast{}, err
	}
	return forecast, nil
}

func (c *ClientImpl) TimeOfDayWeather(ctx context.Context, date calendar_date.CalendarDate) (TimeOfDayForecast, error) {
	var forecast TimeOfDayForecast
	path := "/api/weather/" + date.String() + "/time-of-day"
	if err := c.do(ctx, request{method: http.MethodGet, path: path, endpoint: "/api/weather/{date}/time-of-day"}, &forecast); err != nil {
		return TimeOfDayForecast{}, err
	}
	return forecast, nil
}

func (c *ClientImpl) Health(ctx context.Context) (Health, error) {
	var health Health
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/health", endpoint: "/api/health"}, &health); err != nil {
		return Health{}, err
	}
	return health, nil
}

func (c *ClientImpl) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/stats", endpoint: "/api/stats"}, &stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// IsUpstream reports whether err came back from the backend and returns it.
func IsUpstream(err error) (*UpstreamError, bool) {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr, true
	}
	return nil, false
}
