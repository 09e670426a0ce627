package action

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbit-run/orbit/pkg/api"
)

func TestExecuteUnknownActionType(t *testing.T) {
	d := NewStandardDispatcher()

	_, err := d.Execute(context.Background(), api.TaskSpec{
		Name:       "mystery",
		ActionType: "teleport",
	})
	require.Error(t, err)

	te, ok := api.AsTaskExecution(err)
	require.True(t, ok)
	assert.Equal(t, "mystery", te.Task)
	assert.Equal(t, api.ReasonActionFailure, te.Reason)
	assert.Contains(t, err.Error(), "teleport")
}

func TestExecuteRecoversFromHandlerPanic(t *testing.T) {
	d := NewStandardDispatcher()
	d.handlers["explode"] = func(ctx context.Context, payload map[string]any) (map[string]any, error) {
		panic("boom")
	}

	_, err := d.Execute(context.Background(), api.TaskSpec{
		Name:       "volatile",
		ActionType: "explode",
	})
	require.Error(t, err)

	te, ok := api.AsTaskExecution(err)
	require.True(t, ok)
	assert.Equal(t, api.ReasonActionFailure, te.Reason)
	assert.Contains(t, err.Error(), "panicked")
}

func TestExecuteAppliesTaskTimeout(t *testing.T) {
	d := NewStandardDispatcher()

	start := time.Now()
	_, err := d.Execute(context.Background(), api.TaskSpec{
		Name:          "nap",
		ActionType:    api.ActionSleep,
		ActionPayload: map[string]any{"duration_seconds": 30.0},
		Timeout:       50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	te, ok := api.AsTaskExecution(err)
	require.True(t, ok)
	assert.Equal(t, api.ReasonTimeout, te.Reason)
}

func TestExecuteTimeoutFromPayload(t *testing.T) {
	d := NewStandardDispatcher()

	_, err := d.Execute(context.Background(), api.TaskSpec{
		Name:       "nap",
		ActionType: api.ActionSleep,
		ActionPayload: map[string]any{
			"duration_seconds": 30.0,
			"timeout_seconds":  0.05,
		},
	})
	require.Error(t, err)

	te, ok := api.AsTaskExecution(err)
	require.True(t, ok)
	assert.Equal(t, api.ReasonTimeout, te.Reason)
}

func TestExecuteClassifiesCancellation(t *testing.T) {
	d := NewStandardDispatcher()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := d.Execute(ctx, api.TaskSpec{
		Name:          "nap",
		ActionType:    api.ActionSleep,
		ActionPayload: map[string]any{"duration_seconds": 30.0},
	})
	require.Error(t, err)

	te, ok := api.AsTaskExecution(err)
	require.True(t, ok)
	assert.Equal(t, api.ReasonCancelled, te.Reason)
}

func TestHTTPRequestSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created"))
	}))
	defer srv.Close()

	d := NewStandardDispatcher()
	res, err := d.Execute(context.Background(), api.TaskSpec{
		Name:       "post",
		ActionType: api.ActionHTTPRequest,
		ActionPayload: map[string]any{
			"url":     srv.URL,
			"method":  "post",
			"headers": map[string]any{"Content-Type": "application/json"},
			"body":    map[string]any{"key": "value"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.Output["status_code"])
	assert.Equal(t, "created", res.Output["body"])
	assert.Equal(t, "text/plain", res.Output["content_type"])
	assert.Equal(t, 1, res.Attempts)
}

func TestHTTPRequestErrorStatusFailsTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := NewStandardDispatcher()
	res, err := d.Execute(context.Background(), api.TaskSpec{
		Name:          "flaky",
		ActionType:    api.ActionHTTPRequest,
		ActionPayload: map[string]any{"url": srv.URL},
	})
	require.Error(t, err)

	te, ok := api.AsTaskExecution(err)
	require.True(t, ok)
	assert.Equal(t, api.ReasonActionFailure, te.Reason)

	// The response is still captured as a diagnostic.
	assert.Equal(t, http.StatusServiceUnavailable, res.Output["status_code"])
	assert.Contains(t, res.Output["body"], "nope")
}

func TestHTTPRequestRequiresURL(t *testing.T) {
	d := NewStandardDispatcher()
	_, err := d.Execute(context.Background(), api.TaskSpec{
		Name:          "nowhere",
		ActionType:    api.ActionHTTPRequest,
		ActionPayload: map[string]any{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url")
}

func TestHTTPRequestCapsCapturedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 1024; i++ {
			_, _ = w.Write([]byte("0123456789"))
		}
	}))
	defer srv.Close()

	d := NewStandardDispatcher(WithMaxCapture(100))
	res, err := d.Execute(context.Background(), api.TaskSpec{
		Name:          "big",
		ActionType:    api.ActionHTTPRequest,
		ActionPayload: map[string]any{"url": srv.URL},
	})
	require.NoError(t, err)
	assert.Len(t, res.Output["body"], 100)
}

func TestSleepActionCompletes(t *testing.T) {
	d := NewStandardDispatcher()
	res, err := d.Execute(context.Background(), api.TaskSpec{
		Name:          "nap",
		ActionType:    api.ActionSleep,
		ActionPayload: map[string]any{"duration_seconds": 0.01},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.01, res.Output["slept_seconds"])
}

func TestSleepActionValidation(t *testing.T) {
	d := NewStandardDispatcher()

	_, err := d.Execute(context.Background(), api.TaskSpec{
		Name:          "nap",
		ActionType:    api.ActionSleep,
		ActionPayload: map[string]any{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duration_seconds")

	_, err = d.Execute(context.Background(), api.TaskSpec{
		Name:          "nap",
		ActionType:    api.ActionSleep,
		ActionPayload: map[string]any{"duration_seconds": -1.0},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ">= 0")
}

func TestFloatFieldAcceptsDecoderIntegerTypes(t *testing.T) {
	for _, v := range []any{float64(2), float32(2), int(2), int64(2), uint64(2)} {
		got, ok := floatField(map[string]any{"n": v}, "n")
		require.True(t, ok, "type %T", v)
		assert.Equal(t, 2.0, got)
	}

	_, ok := floatField(map[string]any{"n": "2"}, "n")
	assert.False(t, ok)
}
