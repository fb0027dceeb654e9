package testutil

// FixedSessionIDs gives every run the same session id, so logs and
// responses captured in golden files do not change between runs.
type FixedSessionIDs struct {
	id string
}

// NewFixedSessionIDs pins the id; an empty id becomes
// "test-session-default".
func NewFixedSessionIDs(id string) *FixedSessionIDs {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedSessionIDs{id: id}
}

func (g *FixedSessionIDs) Generate() string { return g.id }
