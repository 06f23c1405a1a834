package iot

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/iot/types"

	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
)

func groupFromDescribe(out *iot.DescribeThingGroupOutput) *domain.ThingGroup {
	group := &domain.ThingGroup{
		Name:       aws.ToString(out.ThingGroupName),
		ARN:        aws.ToString(out.ThingGroupArn),
		ID:         aws.ToString(out.ThingGroupId),
		Version:    out.Version,
		Attributes: map[string]string{},
	}
	if props := out.ThingGroupProperties; props != nil {
		group.Description = aws.ToString(props.ThingGroupDescription)
		if props.AttributePayload != nil {
			for k, v := range props.AttributePayload.Attributes {
				group.Attributes[k] = v
			}
		}
	}
	return group
}

// propertiesFor renders spec as thing group properties. Merge is off so the
// registry's attribute set is replaced by exactly spec.Attributes.
func propertiesFor(spec domain.GroupSpec) *types.ThingGroupProperties {
	attrs := make(map[string]string, len(spec.Attributes))
	for k, v := range spec.Attributes {
		attrs[k] = v
	}
	props := &types.ThingGroupProperties{
		AttributePayload: &types.AttributePayload{
			Attributes: attrs,
			Merge:      false,
		},
	}
	if spec.Description != "" {
		props.ThingGroupDescription = aws.String(spec.Description)
	}
	return props
}
