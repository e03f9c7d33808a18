package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/frc5881/tba-slackbot/engine"
	"github.com/frc5881/tba-slackbot/subscription"
	"github.com/frc5881/tba-slackbot/subscription/mocks"
	"github.com/frc5881/tba-slackbot/tba"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type fakeUpstream struct {
	status *tba.Status
	teams  map[string]bool
}

func (u fakeUpstream) Team(_ context.Context, key string) (*tba.Team, error) {
	if !u.teams[key] {
		return nil, tba.ErrUpstreamStatus
	}
	return &tba.Team{Key: key}, nil
}

func (u fakeUpstream) Status(context.Context) (*tba.Status, error) {
	if u.status == nil {
		return nil, tba.ErrUpstreamStatus
	}
	return u.status, nil
}

type fakeQueue struct {
	err      error
	payloads []string
}

func (q *fakeQueue) Submit(_ context.Context, raw []byte) error {
	if q.err != nil {
		return q.err
	}
	q.payloads = append(q.payloads, string(raw))
	return nil
}

func newTestMux(t *testing.T, opts Options) http.Handler {
	t.Helper()
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("ADMIN_TOKEN", "")
	t.Setenv("RATE_LIMIT_ENABLED", "0")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewMux(ctx, opts)
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	rr := do(newTestMux(t, Options{DB: fakePinger{}}), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))

	rr = do(newTestMux(t, Options{DB: fakePinger{err: errors.New("down")}}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name   string
		opts   Options
		want   int
		failed string
	}{
		{"ready", Options{DB: fakePinger{}, Upstream: fakeUpstream{status: &tba.Status{CurrentSeason: 2016}}}, http.StatusOK, ""},
		{"database down", Options{DB: fakePinger{err: errors.New("refused")}}, http.StatusServiceUnavailable, "database"},
		{"datafeed down", Options{DB: fakePinger{}, Upstream: fakeUpstream{status: &tba.Status{IsDatafeedDown: true}}}, http.StatusServiceUnavailable, "upstream"},
		{"status unavailable", Options{DB: fakePinger{}, Upstream: fakeUpstream{}}, http.StatusServiceUnavailable, "upstream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(newTestMux(t, tt.opts), http.MethodGet, "/readyz", "")
			require.Equal(t, tt.want, rr.Code, rr.Body.String())
			if tt.failed != "" {
				assert.Contains(t, rr.Body.String(), `"failed_check":"`+tt.failed+`"`)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rr := do(newTestMux(t, Options{}), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestWebhook(t *testing.T) {
	ping := `{"message_type":"ping","message_data":{"title":"hi","desc":"there"}}`
	tests := []struct {
		name     string
		body     string
		queueErr error
		want     int
		queued   int
	}{
		{"queued", ping, nil, http.StatusAccepted, 1},
		{"verification queued", `{"message_type":"verification","message_data":{"verification_key":"abc"}}`, nil, http.StatusAccepted, 1},
		{"invalid json", `{"message_type":`, nil, http.StatusInternalServerError, 0},
		{"missing message_type", `{"message_data":{}}`, nil, http.StatusBadRequest, 0},
		{"queue full", ping, engine.ErrQueueFull, http.StatusServiceUnavailable, 0},
		{"submit failure", ping, errors.New("boom"), http.StatusInternalServerError, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQueue{err: tt.queueErr}
			rr := do(newTestMux(t, Options{Queue: q}), http.MethodPost, "/webhooks/tba", tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			assert.Len(t, q.payloads, tt.queued)
		})
	}
}

func TestWebhookChecksumRequired(t *testing.T) {
	body := `{"message_type":"ping","message_data":{}}`
	q := &fakeQueue{}
	h := newTestMux(t, Options{Queue: q, WebhookSecret: "s3cret"})

	rr := do(h, http.MethodPost, "/webhooks/tba", body)
	assert.Equal(t, http.StatusNotAcceptable, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/tba", strings.NewReader(body))
	req.Header.Set("X-TBA-Checksum", webhookChecksum("s3cret", []byte(body)))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, []string{body}, q.payloads)
}

func TestWebhookRejectsGet(t *testing.T) {
	rr := do(newTestMux(t, Options{Queue: &fakeQueue{}}), http.MethodGet, "/webhooks/tba", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestAdminSubscriptions(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	upstream := fakeUpstream{teams: map[string]bool{"frc5881": true}}
	h := newTestMux(t, Options{Subscriptions: store, Upstream: upstream})

	want := subscription.Subscription{TeamID: "T1", ChannelID: "C1", FRCTeam: 5881, Level: subscription.LevelAll, SubscribedBy: "U1"}
	store.EXPECT().Follow(gomock.Any(), want).Return(nil)
	rr := do(h, http.MethodPost, "/admin/subscriptions", `{"team_id":"T1","channel_id":"C1","frc_team":5881,"level":"all","subscribed_by":"U1"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"team_id":"T1","channel_id":"C1","frc_team":5881,"level":"all","subscribed_by":"U1"}`, rr.Body.String())

	rr = do(h, http.MethodPost, "/admin/subscriptions", `{"team_id":"T1","channel_id":"C1","frc_team":9999,"level":"all"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, "unknown team is not followed")

	rr = do(h, http.MethodPost, "/admin/subscriptions", `{"team_id":"T1","channel_id":"C1","frc_team":5881,"level":"loud"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(h, http.MethodPost, "/admin/subscriptions", `{"team_id":"T1","frc_team":5881,"level":"all"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	store.EXPECT().ForChannel(gomock.Any(), "T1", "C1").Return([]subscription.Subscription{want}, nil)
	rr = do(h, http.MethodGet, "/admin/subscriptions?team_id=T1&channel_id=C1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"team_id":"T1","channel_id":"C1","frc_team":5881,"level":"all","subscribed_by":"U1"}]`, rr.Body.String())

	store.EXPECT().ForChannel(gomock.Any(), "T1", "C2").Return(nil, nil)
	rr = do(h, http.MethodGet, "/admin/subscriptions?team_id=T1&channel_id=C2", "")
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = do(h, http.MethodGet, "/admin/subscriptions?team_id=T1", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	store.EXPECT().Unfollow(gomock.Any(), "T1", "C1", 5881).Return(true, nil)
	rr = do(h, http.MethodDelete, "/admin/subscriptions?team_id=T1&channel_id=C1&frc_team=5881", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	store.EXPECT().Unfollow(gomock.Any(), "T1", "C1", 5881).Return(false, nil)
	rr = do(h, http.MethodDelete, "/admin/subscriptions?team_id=T1&channel_id=C1&frc_team=5881", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(h, http.MethodDelete, "/admin/subscriptions?team_id=T1&channel_id=C1&frc_team=abc", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdminRequiresAuthWhenConfigured(t *testing.T) {
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("ADMIN_TOKEN", "tok")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := NewMux(ctx, Options{})

	rr := do(h, http.MethodGet, "/admin/subscriptions?team_id=T1&channel_id=C1", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/subscriptions?team_id=T1&channel_id=C1", nil)
	req.Header.Set("X-Admin-Token", "tok")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code, "authorized but no store wired")
}

func TestStartAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Start(ctx, "127.0.0.1:0", Options{}) }()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}
