package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	appLog "github.com/zawa-kun/zawa-tools/internal/log"
	"github.com/zawa-kun/zawa-tools/internal/schedule"
)

const dateLayout = "2006-01-02"

// GoogleClient is a wrapper around the Google Calendar API service.
type GoogleClient struct {
	service  *calendar.Service
	location *time.Location
}

// NewGoogleClient creates a Google Calendar API client using the provided
// HTTP client. All-day dates are interpreted in loc. Extra options are
// passed to the API service (tests point it at a local endpoint).
func NewGoogleClient(ctx context.Context, httpClient *http.Client, loc *time.Location, opts ...option.ClientOption) (*GoogleClient, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &GoogleClient{service: service, location: loc}, nil
}

// Lookup retrieves a single event by ID. Deleted events are kept by Google
// as cancelled tombstones and are reported as not found.
func (c *GoogleClient) Lookup(ctx context.Context, calendarID, entryID string) LookupResult {
	if entryID == "" {
		return NoID()
	}

	event, err := c.service.Events.Get(calendarID, entryID).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			appLog.Info("calendar event not found", "calendar", calendarID, "event_id", entryID)
		} else {
			appLog.Error("failed to get event, treating it as not found", err, "calendar", calendarID, "event_id", entryID)
		}
		return NotFound()
	}

	if event.Status == "cancelled" {
		appLog.Info("calendar event was deleted", "calendar", calendarID, "event_id", entryID)
		return NotFound()
	}

	entry, err := c.fromGoogleEvent(event)
	if err != nil {
		appLog.Error("failed to read event, treating it as not found", err, "calendar", calendarID, "event_id", entryID)
		return NotFound()
	}
	return Found(entry)
}

// CreateEntry inserts a new event into a calendar.
// Important: Sets sendUpdates="none" to prevent notifications.
func (c *GoogleClient) CreateEntry(ctx context.Context, calendarID string, draft *Draft) (*Entry, error) {
	event := &calendar.Event{}
	applyDraft(event, draft)
	if draft.ReminderMinutes > 0 {
		event.Reminders = &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "popup", Minutes: int64(draft.ReminderMinutes)},
			},
			ForceSendFields: []string{"UseDefault"},
		}
	}

	created, err := c.service.Events.Insert(calendarID, event).
		SendUpdates("none"). // Disable notifications
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	entry, err := c.fromGoogleEvent(created)
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted event %s: %w", created.Id, err)
	}
	return entry, nil
}

// UpdateEntry updates an existing event in a calendar. The fetched event is
// sent back with the new fields so attributes this tool does not manage
// (reminders, colors, attendees) survive.
func (c *GoogleClient) UpdateEntry(ctx context.Context, calendarID string, entry *Entry, draft *Draft) error {
	event, ok := entry.raw.(*calendar.Event)
	if !ok || event == nil {
		event = &calendar.Event{}
	}
	applyDraft(event, draft)

	updated, err := c.service.Events.Update(calendarID, entry.ID, event).
		SendUpdates("none"). // Disable notifications
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	if fresh, err := c.fromGoogleEvent(updated); err == nil {
		*entry = *fresh
	}
	return nil
}

// applyDraft copies the managed fields of draft onto event. Start and End
// are replaced wholesale so switching between timed and all-day clears the
// other representation.
func applyDraft(event *calendar.Event, draft *Draft) {
	event.Summary = draft.Title
	event.Location = draft.Location
	event.Description = draft.Description

	if draft.Span.AllDay {
		// Google all-day events end on the following (exclusive) day.
		event.Start = &calendar.EventDateTime{Date: draft.Span.Date()}
		event.End = &calendar.EventDateTime{Date: draft.Span.Start.AddDate(0, 0, 1).Format(dateLayout)}
		return
	}
	event.Start = &calendar.EventDateTime{DateTime: draft.Span.Start.Format(time.RFC3339)}
	event.End = &calendar.EventDateTime{DateTime: draft.Span.End.Format(time.RFC3339)}
}

// fromGoogleEvent converts a Google Calendar event into an Entry.
func (c *GoogleClient) fromGoogleEvent(event *calendar.Event) (*Entry, error) {
	entry := &Entry{
		ID:          event.Id,
		Title:       event.Summary,
		Location:    event.Location,
		Description: event.Description,
		raw:         event,
	}

	if event.Start == nil {
		return nil, fmt.Errorf("event %s has no start", event.Id)
	}
	if event.Start.Date != "" {
		date, err := time.ParseInLocation(dateLayout, event.Start.Date, c.location)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event start date: %w", err)
		}
		entry.Span = schedule.Span{AllDay: true, Start: date}
	} else {
		start, err := time.Parse(time.RFC3339, event.Start.DateTime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event start time: %w", err)
		}
		entry.Span = schedule.Span{Start: start.In(c.location)}
		if event.End != nil && event.End.DateTime != "" {
			end, err := time.Parse(time.RFC3339, event.End.DateTime)
			if err != nil {
				return nil, fmt.Errorf("failed to parse event end time: %w", err)
			}
			entry.Span.End = end.In(c.location)
		}
	}

	if event.Reminders != nil {
		for _, r := range event.Reminders.Overrides {
			if r.Method == "popup" {
				entry.ReminderMinutes = int(r.Minutes)
				break
			}
		}
	}

	return entry, nil
}
