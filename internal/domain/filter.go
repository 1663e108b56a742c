package domain

// ContactFilter selects a subset of contacts by engagement state.
type ContactFilter string

const (
	FilterAll      ContactFilter = "all"
	FilterClicked  ContactFilter = "clicked"
	FilterOpened   ContactFilter = "opened"   // opened but not clicked
	FilterInactive ContactFilter = "inactive" // never opened
)

// ParseContactFilter maps a query value onto a filter. Unknown or empty
// values select every contact.
func ParseContactFilter(s string) ContactFilter {
	switch ContactFilter(s) {
	case FilterClicked, FilterOpened, FilterInactive:
		return ContactFilter(s)
	default:
		return FilterAll
	}
}

// Matches reports whether a contact belongs to the filtered subset.
func (f ContactFilter) Matches(c Contact) bool {
	switch f {
	case FilterClicked:
		return c.Clicked
	case FilterOpened:
		return c.Opened && !c.Clicked
	case FilterInactive:
		return !c.Opened
	default:
		return true
	}
}
