package stack

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53targets"
	"github.com/aws/jsii-runtime-go"
)

// createDnsResources points the subdomain at the load balancer. The
// record carries an explicit dependency on the load balancer since it
// resolves the balancer's assigned address; it must never be created
// first.
func createDnsResources(resources *Resources, edge *EdgeResources, service *ServiceResources) awsroute53.ARecord {
	cfg := resources.Config
	if edge.HostedZone == nil || cfg.Subdomain == "" {
		return nil
	}

	record := awsroute53.NewARecord(resources.Stack, jsii.String("ChatUiAliasRecord"), &awsroute53.ARecordProps{
		Zone:       edge.HostedZone,
		RecordName: jsii.String(cfg.Subdomain),
		Target: awsroute53.RecordTarget_FromAlias(
			awsroute53targets.NewLoadBalancerTarget(service.LoadBalancer, nil),
		),
	})
	record.Node().AddDependency(service.LoadBalancer)

	return record
}
