package stack

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/jsii-runtime-go"
)

// EdgeResources holds the hosted zone and the certificate for the
// public endpoint. Both are nil when no domain is configured.
type EdgeResources struct {
	HostedZone  awsroute53.IHostedZone
	Certificate awscertificatemanager.ICertificate
}

// createEdgeResources looks up the pre-existing, delegated hosted zone
// and issues a DNS-validated certificate for the service FQDN. The zone
// is never created here; a missing zone surfaces as a lookup failure at
// synth time, not as a half-created resource.
func createEdgeResources(resources *Resources) *EdgeResources {
	cfg := resources.Config
	if cfg.DomainName == "" {
		return &EdgeResources{}
	}

	hostedZone := awsroute53.HostedZone_FromLookup(resources.Stack, jsii.String("HostedZone"), &awsroute53.HostedZoneProviderProps{
		DomainName: jsii.String(cfg.DomainName),
	})

	edge := &EdgeResources{HostedZone: hostedZone}

	if cfg.EnableHTTPS {
		edge.Certificate = awscertificatemanager.NewCertificate(resources.Stack, jsii.String("AlbCert"), &awscertificatemanager.CertificateProps{
			DomainName: jsii.String(cfg.FQDN()),
			Validation: awscertificatemanager.CertificateValidation_FromDns(hostedZone),
		})
	}

	return edge
}
