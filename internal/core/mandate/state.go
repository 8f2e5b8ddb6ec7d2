package mandate

// State is a mandate's build state.
type State int32

const (
	// Unbuilt means no build has been attempted.
	Unbuilt State = iota
	// Building means a build is running.
	Building
	// Valid means a generation is in service.
	Valid
	// Invalid means every build so far has failed.
	Invalid
)

func (s State) String() string {
	switch s {
	case Unbuilt:
		return "unbuilt"
	case Building:
		return "building"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}
