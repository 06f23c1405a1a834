package iot

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/iot"
)

// IoTClientInterface is the subset of the IoT control plane API used for
// thing group management.
type IoTClientInterface interface {
	DescribeThingGroup(ctx context.Context, params *iot.DescribeThingGroupInput, optFns ...func(*iot.Options)) (*iot.DescribeThingGroupOutput, error)
	CreateThingGroup(ctx context.Context, params *iot.CreateThingGroupInput, optFns ...func(*iot.Options)) (*iot.CreateThingGroupOutput, error)
	UpdateThingGroup(ctx context.Context, params *iot.UpdateThingGroupInput, optFns ...func(*iot.Options)) (*iot.UpdateThingGroupOutput, error)
	DeleteThingGroup(ctx context.Context, params *iot.DeleteThingGroupInput, optFns ...func(*iot.Options)) (*iot.DeleteThingGroupOutput, error)
}
