package domain

// AttributeManagedBy is the thing group attribute holding the owning stack.
const AttributeManagedBy = "managed-by"

// ThingGroup is the live registry view of a group.
type ThingGroup struct {
	Name        string
	ARN         string
	ID          string
	Description string
	Attributes  map[string]string
	Version     int64
}

func (g *ThingGroup) Owner() string {
	if g == nil || g.Attributes == nil {
		return ""
	}
	return g.Attributes[AttributeManagedBy]
}

// GroupSpec is what the reconciler asks the registry to create or apply.
type GroupSpec struct {
	Name        string
	Description string
	Attributes  map[string]string
}

func (g *ThingGroup) Data(outcome string) map[string]string {
	return map[string]string{
		DataKeyStatus:    outcome,
		DataKeyGroupName: g.Name,
		DataKeyGroupARN:  g.ARN,
		DataKeyGroupID:   g.ID,
	}
}
