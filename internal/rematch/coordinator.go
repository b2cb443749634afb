// Package rematch tracks the post-game rematch vote. The server decides when
// the vote succeeds; the Coordinator only mirrors what it is told.
package rematch

import "time"

// DefaultTotal is the number of voters in a two-player session.
const DefaultTotal = 2

// Status is a read-only copy of the vote.
type Status struct {
	Accepted      []string
	Votes         int
	Total         int
	TimeRemaining time.Duration
	HasDeadline   bool
	Requested     bool
}

// Count returns the number of accepted voters, named or not.
func (s Status) Count() int {
	return max(len(s.Accepted), s.Votes)
}

// Satisfied reports whether every expected voter accepted.
func (s Status) Satisfied() bool {
	return s.Total > 0 && s.Count() >= s.Total
}

// Coordinator holds the set of accepted voters keyed by player identity.
type Coordinator struct {
	accepted  map[string]struct{}
	order     []string
	tally     int
	total     int
	remaining time.Duration
	deadline  bool
	requested bool
}

// New creates an empty vote expecting total voters.
func New(total int) *Coordinator {
	if total <= 0 {
		total = DefaultTotal
	}
	return &Coordinator{
		accepted: make(map[string]struct{}),
		total:    total,
	}
}

// Accept records a vote for id. Re-accepting is a no-op; the return value
// reports whether the vote was new.
func (c *Coordinator) Accept(id string) bool {
	if _, ok := c.accepted[id]; ok {
		return false
	}
	c.accepted[id] = struct{}{}
	c.order = append(c.order, id)
	return true
}

// Has reports whether id already accepted.
func (c *Coordinator) Has(id string) bool {
	_, ok := c.accepted[id]
	return ok
}

// Apply replaces the membership with the server's view. Servers that only
// report how many accepted send no voters and a tally instead; the tally is
// ignored when voters are named. A positive total overrides the expected
// voter count.
func (c *Coordinator) Apply(voters []string, tally, total int) {
	c.accepted = make(map[string]struct{}, len(voters))
	c.order = c.order[:0]
	c.tally = 0
	for _, id := range voters {
		c.Accept(id)
	}
	if len(voters) == 0 && tally > 0 {
		c.tally = tally
	}
	if total > 0 {
		c.total = total
	}
}

// Count returns the number of accepted voters.
func (c *Coordinator) Count() int {
	return max(len(c.order), c.tally)
}

// Total returns the expected number of voters.
func (c *Coordinator) Total() int {
	return c.total
}

// Satisfied reports whether every expected voter accepted.
func (c *Coordinator) Satisfied() bool {
	return c.Count() >= c.total
}

// MarkRequested records that the local accept intent went out. It returns
// false when it had already been sent.
func (c *Coordinator) MarkRequested() bool {
	if c.requested {
		return false
	}
	c.requested = true
	return true
}

// Requested reports whether the local accept intent went out.
func (c *Coordinator) Requested() bool {
	return c.requested
}

// Seed (re)starts the cosmetic countdown at d.
func (c *Coordinator) Seed(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.remaining = d
	c.deadline = true
}

// Tick advances the countdown by step, stopping at zero.
func (c *Coordinator) Tick(step time.Duration) {
	if !c.deadline {
		return
	}
	c.remaining -= step
	if c.remaining < 0 {
		c.remaining = 0
	}
}

// Counting reports whether the countdown still has time left.
func (c *Coordinator) Counting() bool {
	return c.deadline && c.remaining > 0
}

// Remaining returns the countdown value, if one was seeded.
func (c *Coordinator) Remaining() (time.Duration, bool) {
	return c.remaining, c.deadline
}

// Status returns a copy of the vote.
func (c *Coordinator) Status() Status {
	return Status{
		Accepted:      append([]string(nil), c.order...),
		Votes:         c.Count(),
		Total:         c.total,
		TimeRemaining: c.remaining,
		HasDeadline:   c.deadline,
		Requested:     c.requested,
	}
}
