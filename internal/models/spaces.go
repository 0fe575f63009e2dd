package models

import "sort"

// SpaceMapping maps space names to calendar identifiers.
// It is built once and never modified afterwards.
type SpaceMapping struct {
	calendars map[string]string
}

// NewSpaceMapping copies m so later changes to it are not observed.
func NewSpaceMapping(m map[string]string) SpaceMapping {
	calendars := make(map[string]string, len(m))
	for name, id := range m {
		calendars[name] = id
	}
	return SpaceMapping{calendars: calendars}
}

// CalendarID returns the calendar identifier configured for space.
func (s SpaceMapping) CalendarID(space string) (string, bool) {
	id, ok := s.calendars[space]
	return id, ok
}

// Names returns the configured space names in sorted order.
func (s SpaceMapping) Names() []string {
	names := make([]string, 0, len(s.calendars))
	for name := range s.calendars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s SpaceMapping) Len() int {
	return len(s.calendars)
}
