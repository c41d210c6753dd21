package session

// Announcement is a message shown for a number of ticks
type Announcement struct {
	Text      string `json:"text"`
	Remaining int    `json:"remaining"`
}

// Announcements is a FIFO queue of messages. Only the head is displayed,
// the next one follows once the head expired.
type Announcements struct {
	defaultTicks int
	current      *Announcement
	queue        []Announcement
}

func NewAnnouncements(defaultTicks int) *Announcements {
	return &Announcements{defaultTicks: max(1, defaultTicks)}
}

// Add queues text. A non positive duration uses the default duration.
func (a *Announcements) Add(text string, ticks int) {
	if ticks <= 0 {
		ticks = a.defaultTicks
	}
	a.queue = append(a.queue, Announcement{Text: text, Remaining: ticks})
	if a.current == nil {
		a.next()
	}
}

func (a *Announcements) next() {
	if len(a.queue) == 0 {
		a.current = nil
		return
	}
	head := a.queue[0]
	a.queue = a.queue[1:]
	a.current = &head
}

// Current returns the message to display
func (a *Announcements) Current() (Announcement, bool) {
	if a.current == nil {
		return Announcement{}, false
	}
	return *a.current, true
}

// Tick counts down the displayed message
func (a *Announcements) Tick() {
	if a.current == nil {
		return
	}
	a.current.Remaining--
	if a.current.Remaining <= 0 {
		a.next()
	}
}

// Pending returns the displayed message followed by the queued ones
func (a *Announcements) Pending() []Announcement {
	ret := make([]Announcement, 0, len(a.queue)+1)
	if a.current != nil {
		ret = append(ret, *a.current)
	}
	return append(ret, a.queue...)
}

func (a *Announcements) Len() int {
	return len(a.Pending())
}
