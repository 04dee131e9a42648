package stack

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapplicationautoscaling"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecs"
	"github.com/aws/jsii-runtime-go"
)

// createAutoscalingResources attaches two independent scaling policies
// to the service's task count: CPU target tracking and request-rate
// step scaling. The policies are never combined locally; when both fire
// the scheduler takes the most recent action, and the task count always
// stays within the configured bounds.
func createAutoscalingResources(resources *Resources, service *ServiceResources) {
	cfg := resources.Config

	scaling := service.EcsService.AutoScaleTaskCount(&awsapplicationautoscaling.EnableScalingProps{
		MinCapacity: jsii.Number(float64(cfg.MinReplicas)),
		MaxCapacity: jsii.Number(float64(cfg.MaxReplicas)),
	})

	scaling.ScaleOnCpuUtilization(jsii.String("CpuScaling"), &awsecs.CpuUtilizationScalingProps{
		TargetUtilizationPercent: jsii.Number(float64(cfg.CPUTargetPercent)),
		ScaleInCooldown:          awscdk.Duration_Seconds(jsii.Number(ScaleCooldownSeconds)),
		ScaleOutCooldown:         awscdk.Duration_Seconds(jsii.Number(ScaleCooldownSeconds)),
	})

	// Step intervals are relative to the metric value and cover the
	// full range without overlap: <=50 rpm sheds a task, >=100 adds
	// one, >=200 adds two.
	requestMetric := service.TargetGroup.MetricRequestCountPerTarget(&awscloudwatch.MetricOptions{
		Period: awscdk.Duration_Minutes(jsii.Number(1)),
	})
	scaling.ScaleOnMetric(jsii.String("RequestScaling"), &awsapplicationautoscaling.BasicStepScalingPolicyProps{
		Metric: requestMetric,
		ScalingSteps: &[]*awsapplicationautoscaling.ScalingInterval{
			{Upper: jsii.Number(50), Change: jsii.Number(-1)},
			{Lower: jsii.Number(100), Change: jsii.Number(1)},
			{Lower: jsii.Number(200), Change: jsii.Number(2)},
		},
		AdjustmentType: awsapplicationautoscaling.AdjustmentType_CHANGE_IN_CAPACITY,
		Cooldown:       awscdk.Duration_Seconds(jsii.Number(ScaleCooldownSeconds)),
	})
}
