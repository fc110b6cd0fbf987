package schedule

// TitleMarks configures the bracketed markers of an entry title.
type TitleMarks struct {
	// OnlineLocation is the exact location text meaning "remote".
	OnlineLocation string `json:"online_location" toml:"online_location" yaml:"online_location"`
	OnlineMark     string `json:"online_mark" toml:"online_mark" yaml:"online_mark"`
	InPersonMark   string `json:"in_person_mark" toml:"in_person_mark" yaml:"in_person_mark"`
	// BriefingStatus is the introductory-session phase whose status is
	// shortened to BriefingMark when a location is known.
	BriefingStatus string `json:"briefing_status" toml:"briefing_status" yaml:"briefing_status"`
	BriefingMark   string `json:"briefing_mark" toml:"briefing_mark" yaml:"briefing_mark"`
}

// DefaultTitleMarks returns the markers used by the recruitment sheet.
func DefaultTitleMarks() TitleMarks {
	return TitleMarks{
		OnlineLocation: "オンライン",
		OnlineMark:     "オ",
		InPersonMark:   "対面",
		BriefingStatus: "説明会",
		BriefingMark:   "説",
	}
}

// Format builds the display title for an entry:
//
//	""                 -> [status]company
//	online location    -> [online][status]company
//	any other location -> [in-person][status]company
//
// With a location set, the briefing status is shortened to its mark. The
// online check is an exact, case-sensitive match: an address or a
// differently spelled "online" is in-person.
func (m TitleMarks) Format(status, company, location string) string {
	if location == "" {
		return bracket(status) + company
	}

	place := m.InPersonMark
	if location == m.OnlineLocation {
		place = m.OnlineMark
	}

	label := status
	if status == m.BriefingStatus {
		label = m.BriefingMark
	}
	return bracket(place) + bracket(label) + company
}

func bracket(s string) string {
	return "[" + s + "]"
}
