package core

// UnreadCounter counts, per room and username, the messages posted by others
// since that username last read the room.
type UnreadCounter struct {
	counts map[string]map[string]int
}

func NewUnreadCounter() *UnreadCounter {
	return &UnreadCounter{counts: make(map[string]map[string]int)}
}

func (u *UnreadCounter) Increment(room, username string) int {
	m, ok := u.counts[room]
	if !ok {
		m = make(map[string]int)
		u.counts[room] = m
	}
	m[username]++
	return m[username]
}

func (u *UnreadCounter) Reset(room, username string) {
	m, ok := u.counts[room]
	if !ok {
		m = make(map[string]int)
		u.counts[room] = m
	}
	m[username] = 0
}

func (u *UnreadCounter) Get(room, username string) int {
	return u.counts[room][username]
}
