package transport

// DefaultFactoryRegistrar registers one plugin package's Factory on a
// MultiFactory (e.g. inproc.Register). NewDefaultMultiFactory registers only
// the plugins whose registrars it is given, so callers that need a subset
// (e.g. tests wanting just "inproc") pass only those.
type DefaultFactoryRegistrar func(*MultiFactory)

// NewDefaultMultiFactory applies each registrar in order and returns the
// resulting MultiFactory. Plugin packages pass their own registrar (e.g.
// inproc.Register, zmq.Register) to keep this package free of concrete
// plugin imports.
func NewDefaultMultiFactory(registrars ...DefaultFactoryRegistrar) *MultiFactory {
	mf := NewMultiFactory()

	for _, register := range registrars {
		register(mf)
	}

	return mf
}
