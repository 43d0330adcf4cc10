package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chxlky/trello-timers/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type memLinks map[string]string

func (m memLinks) EventID(_ context.Context, cardID string) (string, error) {
	return m[cardID], nil
}

func (m memLinks) LinkEvent(_ context.Context, cardID, eventID string) error {
	m[cardID] = eventID
	return nil
}

func newTestCalendar(t *testing.T, h http.HandlerFunc, links EventLinker) *CalendarClient {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	srv, err := calendar.NewService(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)
	return newCalendarClient(srv, "primary", "Europe/Bucharest", links, nil)
}

func dueEvent(t *testing.T) models.Event {
	due := time.Date(2024, 1, 9, 1, 0, 0, 0, time.UTC)
	return models.Event{CardID: "c1", CardName: "Water plants", Action: models.ActionDueReset, Cadence: "weekly", Due: &due}
}

func TestCalendarCreatesEventOnFirstReset(t *testing.T) {
	links := memLinks{}
	var body calendar.Event
	client := newTestCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/calendars/primary/events"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"evt-1"}`))
	}, links)

	require.NoError(t, client.Record(context.Background(), dueEvent(t)))
	assert.Equal(t, "evt-1", links["c1"])
	assert.Equal(t, "Water plants", body.Summary)
	assert.Equal(t, "2024-01-09T01:00:00Z", body.Start.DateTime)
	assert.Equal(t, "2024-01-09T01:30:00Z", body.End.DateTime)
}

func TestCalendarRecreatesMissingEvent(t *testing.T) {
	links := memLinks{"c1": "evt-old"}
	var methods []string
	client := newTestCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"evt-new"}`))
	}, links)

	require.NoError(t, client.Record(context.Background(), dueEvent(t)))
	assert.Equal(t, []string{http.MethodPut, http.MethodPost}, methods)
	assert.Equal(t, "evt-new", links["c1"])
}

func TestCalendarIgnoresOtherActions(t *testing.T) {
	client := newTestCalendar(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no calendar call expected")
	}, memLinks{})

	ev := dueEvent(t)
	ev.Action = models.ActionMove
	require.NoError(t, client.Record(context.Background(), ev))
}
