package stack

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsautoscaling"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecs"
	"github.com/aws/jsii-runtime-go"
)

// NetworkResources holds the VPC and the cluster with its EC2 capacity.
type NetworkResources struct {
	Vpc              awsec2.IVpc
	Cluster          awsecs.Cluster
	AutoScalingGroup awsautoscaling.AutoScalingGroup
	CapacityProvider awsecs.AsgCapacityProvider
}

// createNetworkResources creates the VPC, the ECS cluster and the EC2
// auto scaling group bound to the cluster through a capacity provider.
func createNetworkResources(resources *Resources) *NetworkResources {
	vpc := awsec2.NewVpc(resources.Stack, jsii.String("Vpc"), &awsec2.VpcProps{
		MaxAzs:                       jsii.Number(2),
		NatGateways:                  jsii.Number(1),
		RestrictDefaultSecurityGroup: jsii.Bool(false),
	})

	cluster := awsecs.NewCluster(resources.Stack, jsii.String("EcsCluster"), &awsecs.ClusterProps{
		Vpc: vpc,
	})

	asg := awsautoscaling.NewAutoScalingGroup(resources.Stack, jsii.String("Ec2Asg"), &awsautoscaling.AutoScalingGroupProps{
		Vpc:             vpc,
		InstanceType:    awsec2.NewInstanceType(jsii.String(InstanceClass)),
		MachineImage:    awsecs.EcsOptimizedImage_AmazonLinux2(awsecs.AmiHardwareType_STANDARD, nil),
		DesiredCapacity: jsii.Number(InstanceDesired),
		MinCapacity:     jsii.Number(InstanceMinCapacity),
		MaxCapacity:     jsii.Number(InstanceMaxCapacity),
	})

	// Managed scaling lets ECS drive the ASG from task reservation;
	// termination protection stays off so the stack deletes cleanly.
	capacityProvider := awsecs.NewAsgCapacityProvider(resources.Stack, jsii.String("AsgCapacityProvider"), &awsecs.AsgCapacityProviderProps{
		AutoScalingGroup:                   asg,
		EnableManagedScaling:               jsii.Bool(true),
		TargetCapacityPercent:              jsii.Number(TargetCapacityPercent),
		EnableManagedTerminationProtection: jsii.Bool(false),
	})
	cluster.AddAsgCapacityProvider(capacityProvider, nil)
	cluster.AddDefaultCapacityProviderStrategy(&[]*awsecs.CapacityProviderStrategy{
		{
			CapacityProvider: capacityProvider.CapacityProviderName(),
			Weight:           jsii.Number(1),
		},
	})

	return &NetworkResources{
		Vpc:              vpc,
		Cluster:          cluster,
		AutoScalingGroup: asg,
		CapacityProvider: capacityProvider,
	}
}
