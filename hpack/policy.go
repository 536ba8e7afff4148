package hpack

// defaultIndexedNames are the static table names at indices 1, 15, 16, 17,
// 38 and 58. Their values tend to repeat for the whole life of a connection.
var defaultIndexedNames = []string{
	":authority",
	"accept-charset",
	"accept-encoding",
	"accept-language",
	"host",
	"user-agent",
}

// IndexPolicy decides which literal headers IndexAutomatic adds to the
// dynamic table.
type IndexPolicy struct {
	names map[string]struct{}
}

// NewIndexPolicy returns a policy that indexes exactly the given names.
func NewIndexPolicy(names ...string) *IndexPolicy {
	p := &IndexPolicy{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		p.names[name] = struct{}{}
	}
	return p
}

// DefaultIndexPolicy indexes :authority, accept-charset, accept-encoding,
// accept-language, host and user-agent.
func DefaultIndexPolicy() *IndexPolicy {
	return NewIndexPolicy(defaultIndexedNames...)
}

// DefaultIndexedNames returns a copy of the names DefaultIndexPolicy uses.
func DefaultIndexedNames() []string {
	return append([]string(nil), defaultIndexedNames...)
}

func (p *IndexPolicy) ShouldIndex(name string) bool {
	if p == nil {
		return false
	}
	_, ok := p.names[name]
	return ok
}
