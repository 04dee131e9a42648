package stack

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecspatterns"
	"github.com/aws/aws-cdk-go/awscdk/v2/awselasticloadbalancingv2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/jsii-runtime-go"
)

// ServiceResources holds the load-balanced ECS service and the parts of
// it later builders wire against.
type ServiceResources struct {
	Service        awsecspatterns.ApplicationLoadBalancedEc2Service
	EcsService     awsecs.Ec2Service
	TaskDefinition awsecs.Ec2TaskDefinition
	LoadBalancer   awselasticloadbalancingv2.ApplicationLoadBalancer
	TargetGroup    awselasticloadbalancingv2.ApplicationTargetGroup
}

// createServiceResources creates the ALB-fronted ECS service running
// the chat UI image, wires the bridge-mode security groups, configures
// the target-group health check and grants bucket read access to the
// task role.
func createServiceResources(resources *Resources, network *NetworkResources, storage *StorageResources, edge *EdgeResources) *ServiceResources {
	cfg := resources.Config

	image := awsecs.ContainerImage_FromRegistry(jsii.String(cfg.ContainerImage), nil)

	environment := map[string]*string{
		"AWS_REGION": jsii.String(resources.Region),
	}
	if storage.Bucket != nil {
		environment["KNOWLEDGE_BUCKET"] = storage.Bucket.BucketName()
	}
	for key, value := range cfg.EnvVars {
		environment[key] = jsii.String(value)
	}

	// Secrets are looked up by name, never created. Only the reference
	// crosses into the task definition; the value is resolved by ECS at
	// container start.
	secrets := map[string]awsecs.Secret{}
	for _, ref := range cfg.SecretRefs {
		secret := awssecretsmanager.Secret_FromSecretNameV2(
			resources.Stack,
			jsii.String(fmt.Sprintf("Secret%s", ref.LogicalName)),
			jsii.String(ref.SecretPath),
		)
		secrets[ref.LogicalName] = awsecs.Secret_FromSecretsManager(secret, jsii.String(ref.Field))
	}

	serviceProps := &awsecspatterns.ApplicationLoadBalancedEc2ServiceProps{
		Cluster:              network.Cluster,
		DesiredCount:         jsii.Number(float64(cfg.DesiredCount)),
		MemoryLimitMiB:       jsii.Number(TaskMemoryLimitMiB),
		PublicLoadBalancer:   jsii.Bool(true),
		EnableExecuteCommand: jsii.Bool(true),
		TaskImageOptions: &awsecspatterns.ApplicationLoadBalancedTaskImageOptions{
			Image:         image,
			ContainerPort: jsii.Number(float64(cfg.ContainerPort)),
			Environment:   &environment,
			Secrets:       &secrets,
			LogDriver: awsecs.LogDrivers_AwsLogs(&awsecs.AwsLogDriverProps{
				StreamPrefix: jsii.String("chat-ui"),
			}),
		},
		HealthCheckGracePeriod: awscdk.Duration_Seconds(jsii.Number(HealthCheckGraceSeconds)),
	}

	if cfg.EnableHTTPS {
		serviceProps.Protocol = awselasticloadbalancingv2.ApplicationProtocol_HTTPS
		serviceProps.Certificate = edge.Certificate
		serviceProps.RedirectHTTP = jsii.Bool(true)
	} else {
		serviceProps.ListenerPort = jsii.Number(80)
	}

	service := awsecspatterns.NewApplicationLoadBalancedEc2Service(resources.Stack, jsii.String("ChatUiService"), serviceProps)

	// Bridge-mode tasks listen on dynamic host ports. Ingress to the
	// instances and egress from the ALB must be opened symmetrically
	// over the whole ephemeral range.
	albSecurityGroup := (*service.LoadBalancer().Connections().SecurityGroups())[0]
	asgSecurityGroup := (*network.AutoScalingGroup.Connections().SecurityGroups())[0]
	asgSecurityGroup.AddIngressRule(
		albSecurityGroup,
		awsec2.Port_TcpRange(jsii.Number(DynamicPortRangeStart), jsii.Number(DynamicPortRangeEnd)),
		jsii.String("Allow ALB to reach ECS tasks on dynamic host ports (bridge mode)"),
		nil,
	)
	albSecurityGroup.AddEgressRule(
		asgSecurityGroup,
		awsec2.Port_TcpRange(jsii.Number(DynamicPortRangeStart), jsii.Number(DynamicPortRangeEnd)),
		jsii.String("Allow ALB egress to ECS instances on dynamic host ports"),
		nil,
	)

	service.TargetGroup().ConfigureHealthCheck(&awselasticloadbalancingv2.HealthCheck{
		Path:                    jsii.String(HealthCheckPath),
		Port:                    jsii.String("traffic-port"),
		HealthyHttpCodes:        jsii.String(HealthCheckHealthyCodes),
		Interval:                awscdk.Duration_Seconds(jsii.Number(HealthCheckIntervalSeconds)),
		Timeout:                 awscdk.Duration_Seconds(jsii.Number(HealthCheckTimeoutSeconds)),
		HealthyThresholdCount:   jsii.Number(HealthyThresholdCount),
		UnhealthyThresholdCount: jsii.Number(UnhealthyThresholdCount),
	})
	service.TargetGroup().SetAttribute(jsii.String("deregistration_delay.timeout_seconds"), jsii.String(DeregistrationDelaySeconds))
	service.LoadBalancer().SetAttribute(jsii.String("idle_timeout.timeout_seconds"), jsii.String(LoadBalancerIdleTimeoutSecs))

	if storage.Bucket != nil {
		storage.Bucket.GrantRead(service.TaskDefinition().TaskRole(), nil)
	}

	return &ServiceResources{
		Service:        service,
		EcsService:     service.Service(),
		TaskDefinition: service.TaskDefinition(),
		LoadBalancer:   service.LoadBalancer(),
		TargetGroup:    service.TargetGroup(),
	}
}
