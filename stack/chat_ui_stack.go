// Package stack provides the CDK stack for the chat UI deployment
// topology: an ECS cluster on EC2 capacity serving a containerized chat
// UI behind an HTTPS application load balancer, with WAF, DNS,
// autoscaling and an observability pack.
package stack

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"chat-ui-infra/config"
)

// ChatUiStackProps defines the properties for the chat UI stack.
type ChatUiStackProps struct {
	awscdk.StackProps
	Config *config.Config
}

// ChatUiStack is the assembled stack, exposing the attributes the
// deployment pipeline reads back after apply.
type ChatUiStack struct {
	awscdk.Stack
	LoadBalancerDNS     *string
	KnowledgeBucketName *string
	ClusterName         *string
	AlertsTopicArn      *string
}

// Resources holds the stack-wide context shared by every builder.
type Resources struct {
	Stack   awscdk.Stack
	Config  *config.Config
	Account string
	Region  string
}

// NewChatUiStack assembles the full topology in dependency order. The
// configuration must already be validated; assembly itself performs no
// external calls, it only declares resources for CloudFormation to
// apply.
func NewChatUiStack(scope constructs.Construct, id string, props *ChatUiStackProps) *ChatUiStack {
	stack := awscdk.NewStack(scope, &id, &props.StackProps)
	awscdk.Tags_Of(stack).Add(jsii.String(DefaultResourceTagKey), jsii.String(DefaultResourceTagValue), nil)

	resources := &Resources{
		Stack:   stack,
		Config:  props.Config,
		Account: *stack.Account(),
		Region:  *stack.Region(),
	}

	network := createNetworkResources(resources)
	storage := createStorageResources(resources)

	// Zone lookup and certificate come before the service so the HTTPS
	// listener can reference the certificate directly.
	edge := createEdgeResources(resources)

	service := createServiceResources(resources, network, storage, edge)
	createAutoscalingResources(resources, service)
	createFirewallResources(resources, service)
	observability := createObservabilityResources(resources, service)
	createDnsResources(resources, edge, service)

	out := &ChatUiStack{
		Stack:           stack,
		LoadBalancerDNS: service.LoadBalancer.LoadBalancerDnsName(),
		ClusterName:     network.Cluster.ClusterName(),
		AlertsTopicArn:  observability.AlertsTopic.TopicArn(),
	}

	awscdk.NewCfnOutput(stack, jsii.String("LoadBalancerDNS"), &awscdk.CfnOutputProps{
		Value:       service.LoadBalancer.LoadBalancerDnsName(),
		Description: jsii.String("Public address of the chat UI load balancer"),
	})
	awscdk.NewCfnOutput(stack, jsii.String("ClusterName"), &awscdk.CfnOutputProps{
		Value:       network.Cluster.ClusterName(),
		Description: jsii.String("ECS cluster name"),
	})
	awscdk.NewCfnOutput(stack, jsii.String("AlertsSnsTopicArn"), &awscdk.CfnOutputProps{
		Value:       observability.AlertsTopic.TopicArn(),
		Description: jsii.String("Alerts SNS topic"),
	})
	if storage.Bucket != nil {
		out.KnowledgeBucketName = storage.Bucket.BucketName()
		awscdk.NewCfnOutput(stack, jsii.String("KnowledgeBucketName"), &awscdk.CfnOutputProps{
			Value:       storage.Bucket.BucketName(),
			Description: jsii.String("S3 bucket name for knowledge base files"),
		})
	}

	return out
}
