package chat

// Feed is the ordered message list for one mounted room view. It merges
// a one-time history page with live channel events: the backend serves
// history newest first, LoadHistory flips it to ascending once, and
// every live message lands at the end without a re-sort. That holds
// because live events are always newer than the loaded page. The feed
// never deduplicates against history; if the backend ever redelivers a
// fetched message over the channel it will show twice. Known gap,
// kept on purpose so the client matches the backend's fan-out contract.
type Feed struct {
	messages []Message
}

func NewFeed() *Feed {
	return &Feed{messages: make([]Message, 0, 64)}
}

// LoadHistory replaces the feed with the fetched page, reversing the
// backend's newest-first order into display order. Called once per
// view mount, before live events start arriving.
func (f *Feed) LoadHistory(newestFirst []Message) {
	f.messages = make([]Message, len(newestFirst))
	for i, m := range newestFirst {
		f.messages[len(newestFirst)-1-i] = m
	}
}

// Append adds one live message at the end. Prior entries are never
// mutated or removed within a view's lifetime.
func (f *Feed) Append(m Message) {
	f.messages = append(f.messages, m)
}

// Messages returns the feed in display order. Callers must not mutate
// the returned slice.
func (f *Feed) Messages() []Message {
	return f.messages
}

func (f *Feed) Len() int {
	return len(f.messages)
}
