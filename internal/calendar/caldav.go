package calendar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	appLog "github.com/zawa-kun/zawa-tools/internal/log"
	"github.com/zawa-kun/zawa-tools/internal/schedule"
)

const productID = "-//gss2cal//Recruitment Schedule Sync//EN"

// CalDAVClient is a client for CalDAV servers (iCloud, Nextcloud, Fastmail...).
// The calendar id is the path of the calendar collection and each entry is
// stored as <calendar path>/<uid>.ics.
type CalDAVClient struct {
	client   *caldav.Client
	location *time.Location
}

// caldavObject is the native representation kept on an Entry.
type caldavObject struct {
	path string
	cal  *ical.Calendar
}

// NewCalDAVClient creates a CalDAV client. username and password are
// optional; for iCloud the password should be an app-specific password.
func NewCalDAVClient(serverURL, username, password string, loc *time.Location) (*CalDAVClient, error) {
	baseURL, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid CalDAV server URL: %w", err)
	}

	var httpClient webdav.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	if username != "" && password != "" {
		httpClient = webdav.HTTPClientWithBasicAuth(httpClient, username, password)
	}

	c, err := caldav.NewClient(httpClient, baseURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create CalDAV client: %w", err)
	}

	if loc == nil {
		loc = time.Local
	}
	return &CalDAVClient{client: c, location: loc}, nil
}

// Lookup fetches the calendar object holding entryID.
func (c *CalDAVClient) Lookup(ctx context.Context, calendarID, entryID string) LookupResult {
	if entryID == "" {
		return NoID()
	}

	path := objectPath(calendarID, entryID)
	obj, err := c.client.GetCalendarObject(ctx, path)
	if err != nil {
		appLog.Info("calendar object not available, treating it as not found", "path", path, "err", err)
		return NotFound()
	}

	entry, err := c.fromICal(path, obj.Data)
	if err != nil {
		appLog.Error("failed to read calendar object, treating it as not found", err, "path", path)
		return NotFound()
	}
	return Found(entry)
}

// CreateEntry stores a new VEVENT with a fresh UID.
func (c *CalDAVClient) CreateEntry(ctx context.Context, calendarID string, draft *Draft) (*Entry, error) {
	uid := uuid.New().String()

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uid)
	now := time.Now().UTC()
	event.Props.SetDateTime(ical.PropCreated, now)
	applyICalDraft(event.Component, draft, now)

	if draft.ReminderMinutes > 0 {
		event.Children = append(event.Children, newAlarm(draft.Title, draft.ReminderMinutes))
	}
	cal.Children = append(cal.Children, event.Component)

	path := objectPath(calendarID, uid)
	if _, err := c.client.PutCalendarObject(ctx, path, cal); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return c.fromICal(path, cal)
}

// UpdateEntry rewrites the managed properties of the stored VEVENT and
// puts the object back. Alarms and unknown properties are kept.
func (c *CalDAVClient) UpdateEntry(ctx context.Context, calendarID string, entry *Entry, draft *Draft) error {
	obj, ok := entry.raw.(*caldavObject)
	if !ok || obj == nil {
		return fmt.Errorf("entry %s was not loaded from this calendar", entry.ID)
	}

	vevent := findEvent(obj.cal)
	if vevent == nil {
		return fmt.Errorf("no VEVENT found in calendar object %s", obj.path)
	}
	applyICalDraft(vevent, draft, time.Now().UTC())

	if _, err := c.client.PutCalendarObject(ctx, obj.path, obj.cal); err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	fresh, err := c.fromICal(obj.path, obj.cal)
	if err != nil {
		return fmt.Errorf("failed to read updated event: %w", err)
	}
	*entry = *fresh
	return nil
}

// objectPath builds the path of the .ics object for uid.
func objectPath(calendarID, uid string) string {
	return strings.TrimSuffix(calendarID, "/") + "/" + uid + ".ics"
}

// applyICalDraft sets summary, location, description and time on vevent.
func applyICalDraft(vevent *ical.Component, draft *Draft, now time.Time) {
	vevent.Props.SetText(ical.PropSummary, draft.Title)
	setOptionalText(vevent, ical.PropLocation, draft.Location)
	setOptionalText(vevent, ical.PropDescription, draft.Description)

	if draft.Span.AllDay {
		dtstart := ical.NewProp(ical.PropDateTimeStart)
		dtstart.SetDate(draft.Span.Start)
		vevent.Props.Set(dtstart)

		dtend := ical.NewProp(ical.PropDateTimeEnd)
		dtend.SetDate(draft.Span.Start.AddDate(0, 0, 1))
		vevent.Props.Set(dtend)
	} else {
		vevent.Props.SetDateTime(ical.PropDateTimeStart, draft.Span.Start.UTC())
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, draft.Span.End.UTC())
	}

	vevent.Props.SetDateTime(ical.PropDateTimeStamp, now)
	vevent.Props.SetDateTime(ical.PropLastModified, now)
}

func setOptionalText(comp *ical.Component, name, value string) {
	if value == "" {
		comp.Props.Del(name)
		return
	}
	comp.Props.SetText(name, value)
}

// newAlarm builds a display alarm minutes before the start.
func newAlarm(description string, minutes int) *ical.Component {
	alarm := ical.NewComponent(ical.CompAlarm)
	alarm.Props.SetText("ACTION", "DISPLAY")
	alarm.Props.SetText(ical.PropDescription, description)

	trigger := ical.NewProp("TRIGGER")
	trigger.Value = fmt.Sprintf("-PT%dM", minutes)
	alarm.Props.Set(trigger)
	return alarm
}

// alarmMinutes parses a relative trigger such as -PT60M or -PT1H.
func alarmMinutes(trigger string) (int, bool) {
	value := strings.TrimPrefix(trigger, "-")
	if !strings.HasPrefix(value, "PT") {
		return 0, false
	}
	value = strings.TrimPrefix(value, "PT")

	unit := time.Minute
	switch {
	case strings.HasSuffix(value, "M"):
		value = strings.TrimSuffix(value, "M")
	case strings.HasSuffix(value, "H"):
		value = strings.TrimSuffix(value, "H")
		unit = time.Hour
	default:
		return 0, false
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return int(time.Duration(n) * unit / time.Minute), true
}

func findEvent(cal *ical.Calendar) *ical.Component {
	if cal == nil {
		return nil
	}
	for _, comp := range cal.Children {
		if comp.Name == ical.CompEvent {
			return comp
		}
	}
	return nil
}

// fromICal converts the VEVENT of a calendar object into an Entry.
func (c *CalDAVClient) fromICal(path string, cal *ical.Calendar) (*Entry, error) {
	vevent := findEvent(cal)
	if vevent == nil {
		return nil, fmt.Errorf("no VEVENT found in calendar object %s", path)
	}

	entry := &Entry{
		ID:          textProp(vevent, ical.PropUID),
		Title:       textProp(vevent, ical.PropSummary),
		Location:    textProp(vevent, ical.PropLocation),
		Description: textProp(vevent, ical.PropDescription),
		raw:         &caldavObject{path: path, cal: cal},
	}

	dtstart := vevent.Props.Get(ical.PropDateTimeStart)
	if dtstart == nil {
		return nil, fmt.Errorf("calendar object %s has no DTSTART", path)
	}
	start, err := dtstart.DateTime(c.location)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DTSTART: %w", err)
	}

	if dtstart.Params.Get("VALUE") == "DATE" {
		entry.Span = schedule.Span{AllDay: true, Start: start.In(c.location)}
	} else {
		entry.Span = schedule.Span{Start: start.In(c.location)}
		if dtend := vevent.Props.Get(ical.PropDateTimeEnd); dtend != nil {
			end, err := dtend.DateTime(c.location)
			if err != nil {
				return nil, fmt.Errorf("failed to parse DTEND: %w", err)
			}
			entry.Span.End = end.In(c.location)
		}
	}

	for _, child := range vevent.Children {
		if child.Name != ical.CompAlarm {
			continue
		}
		if trigger := child.Props.Get("TRIGGER"); trigger != nil {
			if minutes, ok := alarmMinutes(trigger.Value); ok {
				entry.ReminderMinutes = minutes
				break
			}
		}
	}

	return entry, nil
}

// textProp returns a text property or "" when missing.
func textProp(comp *ical.Component, name string) string {
	prop := comp.Props.Get(name)
	if prop == nil {
		return ""
	}
	text, err := prop.Text()
	if err != nil {
		return prop.Value
	}
	return text
}
