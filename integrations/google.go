package integrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chxlky/trello-timers/internal/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const revivalEventLength = 30 * time.Minute

// EventLinker remembers which calendar event mirrors which card.
type EventLinker interface {
	EventID(ctx context.Context, cardID string) (string, error)
	LinkEvent(ctx context.Context, cardID, eventID string) error
}

// CalendarClient mirrors each timer card's next due instant as a calendar
// event. It is a metrics sink and only reacts to due resets.
type CalendarClient struct {
	service    *calendar.Service
	calendarID string
	timezone   string
	links      EventLinker
	logger     *zap.Logger
}

func NewCalendarClient(ctx context.Context, serviceAccount []byte, calendarID, timezone string, links EventLinker, logger *zap.Logger) (*CalendarClient, error) {
	// create credentials from JSON data
	jwt, err := google.JWTConfigFromJSON(serviceAccount, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account credentials from JSON: %w", err)
	}

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Calendar client: %w", err)
	}

	return newCalendarClient(srv, calendarID, timezone, links, logger), nil
}

func newCalendarClient(srv *calendar.Service, calendarID, timezone string, links EventLinker, logger *zap.Logger) *CalendarClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarClient{
		service:    srv,
		calendarID: calendarID,
		timezone:   timezone,
		links:      links,
		logger:     logger,
	}
}

func (c *CalendarClient) Record(ctx context.Context, ev models.Event) error {
	if ev.Action != models.ActionDueReset || ev.Due == nil {
		return nil
	}

	eventID, err := c.links.EventID(ctx, ev.CardID)
	if err != nil {
		return fmt.Errorf("unable to look up calendar link: %w", err)
	}

	var mirrored *calendar.Event
	if eventID != "" {
		mirrored, err = c.UpdateEvent(ctx, ev, eventID)
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
			c.logger.Info("Linked calendar event is gone, recreating", zap.String("eventID", eventID))
			mirrored, err = c.CreateEvent(ctx, ev)
		}
	} else {
		mirrored, err = c.CreateEvent(ctx, ev)
	}
	if err != nil {
		return err
	}

	if mirrored.Id != eventID {
		if err := c.links.LinkEvent(ctx, ev.CardID, mirrored.Id); err != nil {
			return fmt.Errorf("unable to store calendar link: %w", err)
		}
	}
	c.logger.Debug("Mirrored next due to calendar",
		zap.String("cardID", ev.CardID),
		zap.String("eventID", mirrored.Id),
	)
	return nil
}

func (c *CalendarClient) buildEvent(ev models.Event) *calendar.Event {
	start := ev.Due.UTC()
	return &calendar.Event{
		Summary:     ev.CardName,
		Description: fmt.Sprintf("Trello Card: %s\nCadence: %s", ev.CardURL, ev.Cadence),
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: c.timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: start.Add(revivalEventLength).Format(time.RFC3339),
			TimeZone: c.timezone,
		},
	}
}

func (c *CalendarClient) CreateEvent(ctx context.Context, ev models.Event) (*calendar.Event, error) {
	createdEvent, err := c.service.Events.Insert(c.calendarID, c.buildEvent(ev)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to create event in Google Calendar: %w", err)
	}
	return createdEvent, nil
}

func (c *CalendarClient) UpdateEvent(ctx context.Context, ev models.Event, eventID string) (*calendar.Event, error) {
	event := c.buildEvent(ev)
	event.Id = eventID

	updatedEvent, err := c.service.Events.Update(c.calendarID, eventID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to update event in Google Calendar: %w", err)
	}
	return updatedEvent, nil
}
