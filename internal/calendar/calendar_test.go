package calendar

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/zawa-kun/zawa-tools/internal/schedule"
)

var tokyo = time.FixedZone("JST", 9*3600)

func timedDraft() *Draft {
	return &Draft{
		Title:           "[ES]Acme",
		Description:     "bring ID",
		Span:            schedule.Span{Start: time.Date(2024, 4, 10, 10, 0, 0, 0, tokyo), End: time.Date(2024, 4, 10, 11, 0, 0, 0, tokyo)},
		ReminderMinutes: 60,
	}
}

func allDayDraft() *Draft {
	return &Draft{
		Title:    "[オ][ES]Acme",
		Location: "オンライン",
		Span:     schedule.Span{AllDay: true, Start: time.Date(2024, 4, 10, 0, 0, 0, 0, tokyo)},
	}
}

func TestLookupResultHelpers(t *testing.T) {
	if NoID().Status != LookupNoID {
		t.Error("Expected NoID() to have status no-id")
	}
	if Found(nil).Status != LookupNotFound {
		t.Error("Expected Found(nil) to fold into not-found")
	}
	entry := &Entry{ID: "x"}
	if r := Found(entry); r.Status != LookupFound || r.Entry != entry {
		t.Errorf("Expected found result carrying the entry, got %+v", r)
	}
	if LookupFound.String() != "found" {
		t.Errorf("Unexpected status string %q", LookupFound.String())
	}
}

// googleFake serves the subset of the Calendar API used by GoogleClient.
type googleFake struct {
	t        *testing.T
	inserted *gcal.Event
	updated  *gcal.Event
	query    string
}

func (f *googleFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/calendars/primary/events/evt-1":
		io.WriteString(w, `{"id":"evt-1","status":"confirmed","summary":"[ES]Acme",
			"start":{"dateTime":"2024-04-10T10:00:00+09:00"},"end":{"dateTime":"2024-04-10T11:00:00+09:00"},
			"reminders":{"useDefault":false,"overrides":[{"method":"popup","minutes":60}]}}`)
	case r.Method == http.MethodGet && r.URL.Path == "/calendars/primary/events/evt-deleted":
		io.WriteString(w, `{"id":"evt-deleted","status":"cancelled","start":{"dateTime":"2024-04-10T10:00:00+09:00"}}`)
	case r.Method == http.MethodGet:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"code":404,"message":"Not Found"}}`)
	case r.Method == http.MethodPost && r.URL.Path == "/calendars/primary/events":
		f.query = r.URL.RawQuery
		f.inserted = f.decode(r)
		f.inserted.Id = "evt-new"
		json.NewEncoder(w).Encode(f.inserted)
	case r.Method == http.MethodPut && r.URL.Path == "/calendars/primary/events/evt-1":
		f.query = r.URL.RawQuery
		f.updated = f.decode(r)
		json.NewEncoder(w).Encode(f.updated)
	default:
		f.t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (f *googleFake) decode(r *http.Request) *gcal.Event {
	var event gcal.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		f.t.Errorf("Failed to decode event: %v", err)
	}
	return &event
}

func newGoogleTestClient(t *testing.T) (*GoogleClient, *googleFake) {
	t.Helper()
	fake := &googleFake{t: t}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := NewGoogleClient(context.Background(), server.Client(), tokyo, option.WithEndpoint(server.URL+"/"))
	if err != nil {
		t.Fatalf("NewGoogleClient() returned an error: %v", err)
	}
	return client, fake
}

func TestGoogleClient_Lookup(t *testing.T) {
	client, _ := newGoogleTestClient(t)
	ctx := context.Background()

	result := client.Lookup(ctx, "primary", "evt-1")
	if result.Status != LookupFound {
		t.Fatalf("Expected found, got %s", result.Status)
	}
	if result.Entry.Title != "[ES]Acme" || result.Entry.ReminderMinutes != 60 {
		t.Errorf("Unexpected entry: %+v", result.Entry)
	}
	want := schedule.Span{Start: time.Date(2024, 4, 10, 10, 0, 0, 0, tokyo), End: time.Date(2024, 4, 10, 11, 0, 0, 0, tokyo)}
	if !result.Entry.Span.Equal(want) {
		t.Errorf("Expected span %+v, got %+v", want, result.Entry.Span)
	}

	if got := client.Lookup(ctx, "primary", "missing").Status; got != LookupNotFound {
		t.Errorf("Expected 404 to be not-found, got %s", got)
	}
	if got := client.Lookup(ctx, "primary", "evt-deleted").Status; got != LookupNotFound {
		t.Errorf("Expected cancelled event to be not-found, got %s", got)
	}
	if got := client.Lookup(ctx, "primary", "").Status; got != LookupNoID {
		t.Errorf("Expected empty id to be no-id, got %s", got)
	}
}

func TestGoogleClient_CreateTimedEntry(t *testing.T) {
	client, fake := newGoogleTestClient(t)

	entry, err := client.CreateEntry(context.Background(), "primary", timedDraft())
	if err != nil {
		t.Fatalf("CreateEntry() returned an error: %v", err)
	}
	if entry.ID != "evt-new" {
		t.Errorf("Expected id 'evt-new', got %q", entry.ID)
	}
	if !strings.Contains(fake.query, "sendUpdates=none") {
		t.Errorf("Expected sendUpdates=none, got query %q", fake.query)
	}

	ev := fake.inserted
	if ev.Summary != "[ES]Acme" || ev.Description != "bring ID" {
		t.Errorf("Unexpected event fields: %+v", ev)
	}
	if ev.Start.DateTime != "2024-04-10T10:00:00+09:00" || ev.End.DateTime != "2024-04-10T11:00:00+09:00" {
		t.Errorf("Unexpected times: %s - %s", ev.Start.DateTime, ev.End.DateTime)
	}
	if ev.Reminders == nil || ev.Reminders.UseDefault || len(ev.Reminders.Overrides) != 1 {
		t.Fatalf("Expected one reminder override, got %+v", ev.Reminders)
	}
	if o := ev.Reminders.Overrides[0]; o.Method != "popup" || o.Minutes != 60 {
		t.Errorf("Expected popup 60, got %s %d", o.Method, o.Minutes)
	}
	if entry.ReminderMinutes != 60 {
		t.Errorf("Expected created entry to report its reminder, got %d", entry.ReminderMinutes)
	}
}

func TestGoogleClient_CreateAllDayEntry(t *testing.T) {
	client, fake := newGoogleTestClient(t)

	entry, err := client.CreateEntry(context.Background(), "primary", allDayDraft())
	if err != nil {
		t.Fatalf("CreateEntry() returned an error: %v", err)
	}

	ev := fake.inserted
	if ev.Start.Date != "2024-04-10" || ev.End.Date != "2024-04-11" {
		t.Errorf("Expected 2024-04-10 with exclusive end 2024-04-11, got %s - %s", ev.Start.Date, ev.End.Date)
	}
	if ev.Start.DateTime != "" {
		t.Errorf("Expected no start time, got %s", ev.Start.DateTime)
	}
	if ev.Reminders != nil {
		t.Errorf("Expected no reminder for a zero reminder draft, got %+v", ev.Reminders)
	}
	if !entry.Span.AllDay || entry.Span.Date() != "2024-04-10" {
		t.Errorf("Expected all-day entry on 2024-04-10, got %+v", entry.Span)
	}
}

func TestGoogleClient_UpdateEntry(t *testing.T) {
	client, fake := newGoogleTestClient(t)
	ctx := context.Background()

	result := client.Lookup(ctx, "primary", "evt-1")
	if result.Status != LookupFound {
		t.Fatalf("Expected found, got %s", result.Status)
	}

	if err := client.UpdateEntry(ctx, "primary", result.Entry, allDayDraft()); err != nil {
		t.Fatalf("UpdateEntry() returned an error: %v", err)
	}

	ev := fake.updated
	if ev.Summary != "[オ][ES]Acme" || ev.Location != "オンライン" {
		t.Errorf("Unexpected updated fields: %+v", ev)
	}
	if ev.Start.Date != "2024-04-10" || ev.Start.DateTime != "" {
		t.Errorf("Expected switch to all-day, got %+v", ev.Start)
	}
	// Reminders are not managed on update and must be sent back unchanged.
	if ev.Reminders == nil || len(ev.Reminders.Overrides) != 1 || ev.Reminders.Overrides[0].Minutes != 60 {
		t.Errorf("Expected existing reminder to be kept, got %+v", ev.Reminders)
	}
	if !strings.Contains(fake.query, "sendUpdates=none") {
		t.Errorf("Expected sendUpdates=none, got query %q", fake.query)
	}
	if !result.Entry.Span.AllDay {
		t.Error("Expected entry to be refreshed from the update response")
	}
}

// caldavFake is an in-memory CalDAV object store.
type caldavFake struct {
	mu      sync.Mutex
	objects map[string]string
}

func (f *caldavFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = string(body)
		w.Header().Set("ETag", `"1"`)
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("ETag", `"1"`)
		io.WriteString(w, body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newCalDAVTestClient(t *testing.T) (*CalDAVClient, *caldavFake) {
	t.Helper()
	fake := &caldavFake{objects: make(map[string]string)}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := NewCalDAVClient(server.URL, "user", "secret", tokyo)
	if err != nil {
		t.Fatalf("NewCalDAVClient() returned an error: %v", err)
	}
	return client, fake
}

func TestCalDAVClient_CreateLookupUpdate(t *testing.T) {
	client, fake := newCalDAVTestClient(t)
	ctx := context.Background()
	calendarID := "/calendars/user/recruiting/"

	entry, err := client.CreateEntry(ctx, calendarID, timedDraft())
	if err != nil {
		t.Fatalf("CreateEntry() returned an error: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("Expected a generated UID")
	}

	body, ok := fake.objects[objectPath(calendarID, entry.ID)]
	if !ok {
		t.Fatalf("Expected object at %s, have %v", objectPath(calendarID, entry.ID), fake.objects)
	}
	for _, want := range []string{"BEGIN:VALARM", "TRIGGER:-PT60M", "ACTION:DISPLAY", "SUMMARY:[ES]Acme"} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected object to contain %q:\n%s", want, body)
		}
	}

	result := client.Lookup(ctx, calendarID, entry.ID)
	if result.Status != LookupFound {
		t.Fatalf("Expected found, got %s", result.Status)
	}
	if !result.Entry.Span.Equal(timedDraft().Span) {
		t.Errorf("Expected span %+v, got %+v", timedDraft().Span, result.Entry.Span)
	}
	if result.Entry.ReminderMinutes != 60 || result.Entry.Description != "bring ID" {
		t.Errorf("Unexpected entry: %+v", result.Entry)
	}

	if err := client.UpdateEntry(ctx, calendarID, result.Entry, allDayDraft()); err != nil {
		t.Fatalf("UpdateEntry() returned an error: %v", err)
	}

	again := client.Lookup(ctx, calendarID, entry.ID)
	if again.Status != LookupFound {
		t.Fatalf("Expected found after update, got %s", again.Status)
	}
	if !again.Entry.Span.AllDay || again.Entry.Span.Date() != "2024-04-10" {
		t.Errorf("Expected all-day on 2024-04-10, got %+v", again.Entry.Span)
	}
	if again.Entry.Title != "[オ][ES]Acme" || again.Entry.Location != "オンライン" {
		t.Errorf("Unexpected updated entry: %+v", again.Entry)
	}
	if again.Entry.Description != "" {
		t.Errorf("Expected cleared description, got %q", again.Entry.Description)
	}
	if again.Entry.ReminderMinutes != 60 {
		t.Errorf("Expected alarm to survive update, got %d", again.Entry.ReminderMinutes)
	}
}

func TestCalDAVClient_LookupMissing(t *testing.T) {
	client, _ := newCalDAVTestClient(t)
	ctx := context.Background()

	if got := client.Lookup(ctx, "/calendars/user/recruiting/", "nope").Status; got != LookupNotFound {
		t.Errorf("Expected not-found, got %s", got)
	}
	if got := client.Lookup(ctx, "/calendars/user/recruiting/", "").Status; got != LookupNoID {
		t.Errorf("Expected no-id, got %s", got)
	}
}

func TestAlarmMinutes(t *testing.T) {
	tests := []struct {
		trigger string
		want    int
		ok      bool
	}{
		{"-PT60M", 60, true},
		{"-PT1H", 60, true},
		{"PT15M", 15, true},
		{"-P1D", 0, false},
		{"garbage", 0, false},
	}
	for _, tt := range tests {
		got, ok := alarmMinutes(tt.trigger)
		if got != tt.want || ok != tt.ok {
			t.Errorf("alarmMinutes(%q) = %d, %v; want %d, %v", tt.trigger, got, ok, tt.want, tt.ok)
		}
	}
}

func TestObjectPath(t *testing.T) {
	if got := objectPath("/cal/work/", "abc"); got != "/cal/work/abc.ics" {
		t.Errorf("objectPath() = %q", got)
	}
	if got := objectPath("/cal/work", "abc"); got != "/cal/work/abc.ics" {
		t.Errorf("objectPath() = %q", got)
	}
}
