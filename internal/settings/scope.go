package settings

// Scope selects the override row consulted by the first resolution tier. The
// zero Scope is Global, which only matches rows stored without a scope.
type Scope struct {
	id  string
	set bool
}

// Global is the null scope.
var Global = Scope{}

// ScopeID returns the scope of one conversation.
func ScopeID(id string) Scope { return Scope{id: id, set: true} }

// ID returns the conversation id and whether the scope is non-null.
func (s Scope) ID() (string, bool) { return s.id, s.set }

func (s Scope) ptr() *string {
	if !s.set {
		return nil
	}
	id := s.id
	return &id
}

func (s Scope) String() string {
	if !s.set {
		return "<global>"
	}
	return s.id
}
