package domain

// ReferenceKind identifies one of the taxonomy tables a post can point at.
type ReferenceKind string

const (
	ReferenceHost          ReferenceKind = "host"
	ReferenceParasiteAgent ReferenceKind = "parasite_agent"
	ReferenceTransmission  ReferenceKind = "transmission"
)

// ReferenceKinds lists every supported kind.
var ReferenceKinds = []ReferenceKind{ReferenceHost, ReferenceParasiteAgent, ReferenceTransmission}

// ReferenceEntity is a named taxonomy entry (a host, a parasite agent or a transmission route).
type ReferenceEntity struct {
	ID   int64
	Kind ReferenceKind
	Name string
}
