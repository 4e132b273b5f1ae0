package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"videothingy/council-highlights/internal/playback"
	"videothingy/council-highlights/internal/worker"
	"videothingy/council-highlights/models"
)

func sampleRequest() RenderRequest {
	return RenderRequest{
		HighlightID: "h1",
		MediaURL:    "https://media.example.org/meeting-1.mp4",
		Parts:       []Part{{Start: 2, End: 4}, {Start: 8, End: 10}},
		CallbackURL: "https://app.example.org/hooks/render",
	}
}

func TestPartsFromView(t *testing.T) {
	view := playback.View{Clips: []playback.Clip{
		{UtteranceID: "a", StartTimestamp: 1, EndTimestamp: 2},
		{UtteranceID: "b", StartTimestamp: 5, EndTimestamp: 7.5},
	}}
	assert.Equal(t, []Part{{Start: 1, End: 2}, {Start: 5, End: 7.5}}, PartsFromView(view))
	assert.Empty(t, PartsFromView(playback.View{}))
}

func TestClient_GenerateHighlight(t *testing.T) {
	var got RenderRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/tasks/generate-highlight", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"task_id":"t-1"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", "secret", time.Second)
	res, err := client.GenerateHighlight(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, sampleRequest(), got)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, http.StatusAccepted, res.StatusCode)
	assert.JSONEq(t, `{"task_id":"t-1"}`, string(res.Body))
}

func TestClient_NonSuccessStatusIsError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, "", time.Second).GenerateHighlight(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream down")
	require.NotNil(t, res)
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
	assert.Nil(t, res.Body, "non-JSON body is not kept")
	assert.Equal(t, 1, calls, "no retries")
}

func TestClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient("http://127.0.0.1:1", "", time.Second).GenerateHighlight(ctx, sampleRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "", time.Second).GenerateHighlight(context.Background(), sampleRequest())
	assert.Error(t, err)
}

type MockJobStore struct {
	mock.Mock
}

func (m *MockJobStore) CreateJobRecord(ctx context.Context, jobType, entityID string, payload interface{}) (string, error) {
	args := m.Called(ctx, jobType, entityID, payload)
	return args.String(0), args.Error(1)
}

func (m *MockJobStore) UpdateJobStatus(ctx context.Context, jobID, status string, output interface{}, errorMessage string) error {
	args := m.Called(ctx, jobID, status, output, errorMessage)
	return args.Error(0)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateHighlight(ctx context.Context, req RenderRequest) (*DispatchResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*DispatchResult)
	return res, args.Error(1)
}

// inlinePool runs submitted jobs immediately.
type inlinePool struct {
	err     error
	lastErr error
}

func (p *inlinePool) SubmitJob(job worker.Job) error {
	if p.err != nil {
		return p.err
	}
	p.lastErr = job.Execute(context.Background())
	return nil
}

func TestRenderer_Dispatched(t *testing.T) {
	store := new(MockJobStore)
	gen := new(MockGenerator)
	pool := &inlinePool{}
	req := sampleRequest()
	res := &DispatchResult{StatusCode: 202}

	store.On("CreateJobRecord", mock.Anything, models.JobTypeGenerateHighlight, "h1", req).Return("job-1", nil)
	gen.On("GenerateHighlight", mock.Anything, req).Return(res, nil)
	store.On("UpdateJobStatus", mock.Anything, "job-1", models.JobStatusDispatched, res, "").Return(nil)

	id, err := NewRenderer(gen, store, pool, nil).RequestRender(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)
	assert.NoError(t, pool.lastErr)
	store.AssertExpectations(t)
	gen.AssertExpectations(t)
}

func TestRenderer_GeneratorFailureMarksFailed(t *testing.T) {
	store := new(MockJobStore)
	gen := new(MockGenerator)
	pool := &inlinePool{}
	req := sampleRequest()
	boom := errors.New("connection refused")

	store.On("CreateJobRecord", mock.Anything, models.JobTypeGenerateHighlight, "h1", req).Return("job-1", nil)
	gen.On("GenerateHighlight", mock.Anything, req).Return(nil, boom)
	store.On("UpdateJobStatus", mock.Anything, "job-1", models.JobStatusFailed, nil, "connection refused").Return(nil)

	id, err := NewRenderer(gen, store, pool, nil).RequestRender(context.Background(), req)
	require.NoError(t, err, "dispatch failures surface on the job row")
	assert.Equal(t, "job-1", id)
	assert.ErrorIs(t, pool.lastErr, boom)
	store.AssertExpectations(t)
}

func TestRenderer_QueueFull(t *testing.T) {
	store := new(MockJobStore)
	gen := new(MockGenerator)
	pool := &inlinePool{err: worker.ErrQueueFull}
	req := sampleRequest()

	store.On("CreateJobRecord", mock.Anything, models.JobTypeGenerateHighlight, "h1", req).Return("job-1", nil)
	store.On("UpdateJobStatus", mock.Anything, "job-1", models.JobStatusFailed, nil, worker.ErrQueueFull.Error()).Return(nil)

	id, err := NewRenderer(gen, store, pool, nil).RequestRender(context.Background(), req)
	assert.ErrorIs(t, err, worker.ErrQueueFull)
	assert.Equal(t, "job-1", id)
	gen.AssertNotCalled(t, "GenerateHighlight", mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestRenderer_StoreFailure(t *testing.T) {
	store := new(MockJobStore)
	req := sampleRequest()
	store.On("CreateJobRecord", mock.Anything, models.JobTypeGenerateHighlight, "h1", req).Return("", errors.New("db down"))

	_, err := NewRenderer(new(MockGenerator), store, &inlinePool{}, nil).RequestRender(context.Background(), req)
	assert.ErrorContains(t, err, "db down")
}
