package eg

type EntityType string

func (et EntityType) String() string {
	return string(et)
}

type EntityTyped interface {
	EntityType() EntityType
}

func EntityTypeOf(state any) EntityType {
	if named, ok := state.(EntityTyped); ok {
		return named.EntityType()
	}

	return EntityType(NameOf(state))
}

// Entity is an aggregate reconstructed from its event stream. Version is the
// head version at load time and doubles as the expected version for the next
// append.
type Entity[T any] struct {
	Stream  StreamID
	Version Version
	Type    EntityType
	State   *T
}

func (e *Entity[T]) Initialized() bool {
	return e.Version != InitialVersion
}
