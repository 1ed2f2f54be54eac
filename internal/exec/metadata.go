package exec

// MetadataGenerator derives the metadata of a run from its input.
type MetadataGenerator[IN any] struct {
	providers map[any]func(IN) any
}

// NewMetadataGenerator creates an empty generator.
func NewMetadataGenerator[IN any]() *MetadataGenerator[IN] {
	return &MetadataGenerator[IN]{providers: make(map[any]func(IN) any)}
}

// Add registers provider as the source of entry. A later registration for
// the same entry replaces the earlier one.
func Add[IN, T any](g *MetadataGenerator[IN], entry *Entry[T], provider func(IN) T) {
	g.providers[entry] = func(in IN) any { return provider(in) }
}

// Len returns the number of registered entries.
func (g *MetadataGenerator[IN]) Len() int {
	return len(g.providers)
}

// Generate evaluates every provider against input.
func (g *MetadataGenerator[IN]) Generate(input IN) Metadata {
	md := make(Metadata, len(g.providers))
	for entry, provider := range g.providers {
		md[entry] = provider(input)
	}
	return md
}
