package domain

import "fmt"

type RequestType string

const (
	RequestCreate RequestType = "Create"
	RequestUpdate RequestType = "Update"
	RequestDelete RequestType = "Delete"
)

func (rt RequestType) String() string {
	return string(rt)
}

func (rt RequestType) Valid() bool {
	switch rt {
	case RequestCreate, RequestUpdate, RequestDelete:
		return true
	default:
		return false
	}
}

// GroupProperties is the desired state of the thing group as declared on the
// custom resource. Key names follow the stack template.
type GroupProperties struct {
	ThingGroupName string            `mapstructure:"thingGroupName" validate:"required,max=128,iotname"`
	Region         string            `mapstructure:"regionName" validate:"omitempty,max=32"`
	StackName      string            `mapstructure:"stackName" validate:"omitempty,max=128"`
	Description    string            `mapstructure:"description" validate:"omitempty,max=2028"`
	Attributes     map[string]string `mapstructure:"attributes" validate:"max=50,dive,keys,required,max=128,iotattrkey,endkeys,max=800,iotattrvalue"`
}

type LifecycleEvent struct {
	RequestType        RequestType
	RequestID          string
	StackID            string
	LogicalResourceID  string
	PhysicalResourceID string
	Properties         GroupProperties
	OldProperties      *GroupProperties
}

// Owner is the identity recorded on groups this stack manages. StackID is
// preferred; StackName covers callers that do not send a stack ARN.
func (e *LifecycleEvent) Owner() string {
	if e.StackID != "" {
		return e.StackID
	}
	return e.Properties.StackName
}

type LifecycleStatus string

const (
	StatusSuccess LifecycleStatus = "SUCCESS"
	StatusFailed  LifecycleStatus = "FAILED"
)

// Values of LifecycleResult.Data[DataKeyStatus].
const (
	OutcomeCreated       = "Created"
	OutcomeUpdated       = "Updated"
	OutcomeUnchanged     = "Unchanged"
	OutcomeDeleted       = "Deleted"
	OutcomeAlreadyAbsent = "AlreadyAbsent"
	OutcomeNotOwned      = "NotOwned"
)

const (
	DataKeyStatus    = "Status"
	DataKeyGroupName = "ThingGroupName"
	DataKeyGroupARN  = "ThingGroupArn"
	DataKeyGroupID   = "ThingGroupId"
)

type LifecycleResult struct {
	PhysicalResourceID string
	Data               map[string]string
	Status             LifecycleStatus
	Reason             string
}

func Succeeded(physicalID string, data map[string]string) LifecycleResult {
	if data == nil {
		data = map[string]string{}
	}
	return LifecycleResult{PhysicalResourceID: physicalID, Data: data, Status: StatusSuccess}
}

func Failed(physicalID string, reason string) LifecycleResult {
	return LifecycleResult{PhysicalResourceID: physicalID, Data: map[string]string{}, Status: StatusFailed, Reason: reason}
}

func (r LifecycleResult) String() string {
	if r.Status == StatusFailed {
		return fmt.Sprintf("%s %s: %s", r.Status, r.PhysicalResourceID, r.Reason)
	}
	return fmt.Sprintf("%s %s %v", r.Status, r.PhysicalResourceID, r.Data)
}
