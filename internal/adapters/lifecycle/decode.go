package lifecycle

import (
	"github.com/aws/aws-lambda-go/cfn"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
	"github.com/olusolaa/fleet-provisioner/internal/errors"
	"github.com/olusolaa/fleet-provisioner/internal/validation"
)

const (
	propertyGroupName = "thingGroupName"
	// propertyName is accepted in place of thingGroupName.
	propertyName = "name"
)

// decodeProperties reads resource properties as sent by the stack. Values
// arrive as strings, so decoding is weakly typed; unknown keys such as
// ServiceToken are ignored.
func decodeProperties(raw map[string]interface{}, validate *validator.Validate) (domain.GroupProperties, error) {
	raw = withGroupName(raw)
	var props domain.GroupProperties
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &props,
		TagName:          "mapstructure",
	})
	if err != nil {
		return domain.GroupProperties{}, errors.Wrap(err, errors.CodeInternal, "failed to build property decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return domain.GroupProperties{}, errors.Wrap(err, errors.CodeValidation, "resource properties could not be decoded")
	}
	if err := validate.Struct(props); err != nil {
		return domain.GroupProperties{}, errors.NewUserFacing(errors.CodeValidation,
			"invalid resource properties: "+validation.Describe(err),
			"Check thingGroupName, regionName, description and attributes on the custom resource.")
	}
	return props, nil
}

// withGroupName copies a name property into thingGroupName when the latter
// is missing. raw itself is left untouched.
func withGroupName(raw map[string]interface{}) map[string]interface{} {
	if _, ok := raw[propertyGroupName]; ok {
		return raw
	}
	name, ok := raw[propertyName]
	if !ok {
		return raw
	}
	aliased := make(map[string]interface{}, len(raw)+1)
	for k, v := range raw {
		aliased[k] = v
	}
	aliased[propertyGroupName] = name
	return aliased
}

// toEvent builds the domain event. The error reports undecodable properties;
// the returned event is still usable for Delete.
func toEvent(event cfn.Event, validate *validator.Validate) (*domain.LifecycleEvent, error) {
	ev := &domain.LifecycleEvent{
		RequestType:        domain.RequestType(event.RequestType),
		RequestID:          event.RequestID,
		StackID:            event.StackID,
		LogicalResourceID:  event.LogicalResourceID,
		PhysicalResourceID: event.PhysicalResourceID,
	}
	if len(event.OldResourceProperties) > 0 {
		if old, oldErr := decodeProperties(event.OldResourceProperties, validate); oldErr == nil {
			ev.OldProperties = &old
		}
	}
	props, err := decodeProperties(event.ResourceProperties, validate)
	if err != nil {
		return ev, err
	}
	ev.Properties = props
	return ev, nil
}

// ToResponse renders result as the custom resource response document for
// event.
func ToResponse(event cfn.Event, result domain.LifecycleResult) *cfn.Response {
	resp := cfn.NewResponse(&event)
	resp.PhysicalResourceID = result.PhysicalResourceID
	resp.Reason = result.Reason
	if result.Status == domain.StatusSuccess {
		resp.Status = cfn.StatusSuccess
	} else {
		resp.Status = cfn.StatusFailed
	}
	if len(result.Data) > 0 {
		resp.Data = make(map[string]interface{}, len(result.Data))
		for k, v := range result.Data {
			resp.Data[k] = v
		}
	}
	return resp
}
