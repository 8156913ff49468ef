package components

// Host states shown in the list.
const (
	HostPending = "pending"
	HostRunning = "running"
	HostDone    = "done"
	HostFailed  = "failed"
)

// HostEntry is the display state of one batch host.
type HostEntry struct {
	Which   string
	Status  string
	Tests   int
	Crashes int
	// Total is the deficit total once the host report is final.
	Total   int
	Current string
	Message string
}

// Finished reports whether the host report is final.
func (e HostEntry) Finished() bool {
	return e.Status == HostDone || e.Status == HostFailed
}

// HostList holds hosts in batch order.
type HostList struct {
	entries []HostEntry
}

// NewHostList constructs a list with every host pending.
func NewHostList(hosts []string) HostList {
	entries := make([]HostEntry, len(hosts))
	for i, which := range hosts {
		entries[i] = HostEntry{Which: which, Status: HostPending}
	}
	return HostList{entries: entries}
}

// Len returns the number of hosts.
func (l HostList) Len() int {
	return len(l.entries)
}

// Update applies fn to the entry at index. Out-of-range indexes are ignored.
func (l HostList) Update(index int, fn func(*HostEntry)) HostList {
	if index < 0 || index >= len(l.entries) {
		return l
	}
	entries := make([]HostEntry, len(l.entries))
	copy(entries, l.entries)
	fn(&entries[index])
	return HostList{entries: entries}
}

// Entries returns a copy of the ordered entries.
func (l HostList) Entries() []HostEntry {
	clone := make([]HostEntry, len(l.entries))
	copy(clone, l.entries)
	return clone
}
