package stack

import (
	"strings"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-ui-infra/config"
)

func testConfig() *config.Config {
	return &config.Config{
		ContainerImage:   "lobehub/lobe-chat:latest",
		ContainerPort:    3210,
		DesiredCount:     2,
		MinReplicas:      1,
		MaxReplicas:      6,
		CPUTargetPercent: 30,
		SecretRefs: config.SecretRefs{
			{LogicalName: "OPENAI_API_KEY", SecretPath: "multimodalai/openai-api-key", Field: "OPENAI_API_KEY"},
			{LogicalName: "GOOGLE_API_KEY", SecretPath: "multimodalai/google-api-key", Field: "GOOGLE_API_KEY"},
		},
		EnableKnowledgeBucket: true,
		NotifyEmail:           "ops@example.com",
		AllowedCountries:      []string{"US"},
		ElbLogDeliveryAccount: "127311923021",
	}
}

func synthesize(t *testing.T, cfg *config.Config) assertions.Template {
	t.Helper()
	require.NoError(t, cfg.Validate())

	app := awscdk.NewApp(nil)
	chatUi := NewChatUiStack(app, "TestChatUiStack", &ChatUiStackProps{
		StackProps: awscdk.StackProps{
			Env: &awscdk.Environment{
				Account: jsii.String("123456789012"),
				Region:  jsii.String("us-east-1"),
			},
		},
		Config: cfg,
	})
	return assertions.Template_FromStack(chatUi.Stack, nil)
}

func TestTopologyHasExactlyOneLoadBalancer(t *testing.T) {
	template := synthesize(t, testConfig())

	template.ResourceCountIs(jsii.String("AWS::ElasticLoadBalancingV2::LoadBalancer"), jsii.Number(1))
	template.ResourceCountIs(jsii.String("AWS::ECS::Service"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::ECS::Service"), map[string]interface{}{
		"DesiredCount": 2,
	})
}

func TestHttpListenerWhenHTTPSDisabled(t *testing.T) {
	template := synthesize(t, testConfig())

	template.HasResourceProperties(jsii.String("AWS::ElasticLoadBalancingV2::Listener"), map[string]interface{}{
		"Port":     80,
		"Protocol": "HTTP",
	})
	template.ResourceCountIs(jsii.String("AWS::CertificateManager::Certificate"), jsii.Number(0))
	template.ResourceCountIs(jsii.String("AWS::Route53::RecordSet"), jsii.Number(0))
}

func TestHttpsTopologyCreatesCertificateAndDns(t *testing.T) {
	cfg := testConfig()
	cfg.EnableHTTPS = true
	cfg.DomainName = "example.com"
	cfg.Subdomain = "app"

	template := synthesize(t, cfg)

	template.HasResourceProperties(jsii.String("AWS::CertificateManager::Certificate"), map[string]interface{}{
		"DomainName": "app.example.com",
	})
	template.HasResourceProperties(jsii.String("AWS::ElasticLoadBalancingV2::Listener"), map[string]interface{}{
		"Port":     443,
		"Protocol": "HTTPS",
	})
	template.HasResourceProperties(jsii.String("AWS::Route53::RecordSet"), map[string]interface{}{
		"Name": "app.example.com.",
		"Type": "A",
	})
}

func TestDnsRecordDependsOnLoadBalancer(t *testing.T) {
	cfg := testConfig()
	cfg.EnableHTTPS = true
	cfg.DomainName = "example.com"
	cfg.Subdomain = "app"

	template := synthesize(t, cfg)

	records := *template.FindResources(jsii.String("AWS::Route53::RecordSet"), nil)
	require.Len(t, records, 1)
	for _, record := range records {
		dependsOn, ok := (*record)["DependsOn"].([]interface{})
		require.True(t, ok, "record must carry an explicit dependency edge")

		found := false
		for _, dep := range dependsOn {
			if name, ok := dep.(string); ok && strings.Contains(name, "ChatUiServiceLB") {
				found = true
			}
		}
		assert.True(t, found, "record must depend on the load balancer, got %v", dependsOn)
	}
}

func TestTargetGroupHealthCheckPolicy(t *testing.T) {
	template := synthesize(t, testConfig())

	template.HasResourceProperties(jsii.String("AWS::ElasticLoadBalancingV2::TargetGroup"), map[string]interface{}{
		"HealthCheckPath":            "/",
		"HealthCheckIntervalSeconds": 30,
		"HealthCheckTimeoutSeconds":  20,
		"HealthyThresholdCount":      2,
		"UnhealthyThresholdCount":    5,
		"Matcher": map[string]interface{}{
			"HttpCode": "200-399",
		},
		"TargetGroupAttributes": assertions.Match_ArrayWith(&[]interface{}{
			map[string]interface{}{
				"Key":   "deregistration_delay.timeout_seconds",
				"Value": "30",
			},
		}),
	})
}

func TestSymmetricDynamicPortRules(t *testing.T) {
	template := synthesize(t, testConfig())

	template.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroupIngress"), map[string]interface{}{
		"IpProtocol": "tcp",
		"FromPort":   32768,
		"ToPort":     65535,
	})
	template.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroupEgress"), map[string]interface{}{
		"IpProtocol": "tcp",
		"FromPort":   32768,
		"ToPort":     65535,
	})
}

func TestCapacityProviderBinding(t *testing.T) {
	template := synthesize(t, testConfig())

	template.HasResourceProperties(jsii.String("AWS::ECS::CapacityProvider"), map[string]interface{}{
		"AutoScalingGroupProvider": assertions.Match_ObjectLike(&map[string]interface{}{
			"ManagedScaling": assertions.Match_ObjectLike(&map[string]interface{}{
				"Status":         "ENABLED",
				"TargetCapacity": 80,
			}),
		}),
	})
}

func TestReplicaBoundsOnScalableTarget(t *testing.T) {
	template := synthesize(t, testConfig())

	template.HasResourceProperties(jsii.String("AWS::ApplicationAutoScaling::ScalableTarget"), map[string]interface{}{
		"MinCapacity": 1,
		"MaxCapacity": 6,
	})
}

func TestScalingPoliciesStayIndependent(t *testing.T) {
	template := synthesize(t, testConfig())

	// One target-tracking policy for CPU; step scaling splits into a
	// scale-in and a scale-out policy. Deltas are never merged into a
	// single combined policy.
	policies := *template.FindResources(jsii.String("AWS::ApplicationAutoScaling::ScalingPolicy"), nil)
	require.Len(t, policies, 3)

	policyTypes := map[string]int{}
	totalStepAdjustments := 0
	for _, policy := range policies {
		properties := (*policy)["Properties"].(map[string]interface{})
		policyTypes[properties["PolicyType"].(string)]++

		if properties["PolicyType"] == "StepScaling" {
			stepConfig := properties["StepScalingPolicyConfiguration"].(map[string]interface{})
			assert.Equal(t, "ChangeInCapacity", stepConfig["AdjustmentType"])
			totalStepAdjustments += len(stepConfig["StepAdjustments"].([]interface{}))
		}
	}
	assert.Equal(t, 1, policyTypes["TargetTrackingScaling"])
	assert.Equal(t, 2, policyTypes["StepScaling"])
	assert.Equal(t, 3, totalStepAdjustments, "one adjustment per configured interval")
}

func TestFirewallPrioritiesAreDistinctAndAscending(t *testing.T) {
	template := synthesize(t, testConfig())

	webAcls := *template.FindResources(jsii.String("AWS::WAFv2::WebACL"), nil)
	require.Len(t, webAcls, 1)

	for _, webAcl := range webAcls {
		properties := (*webAcl)["Properties"].(map[string]interface{})
		rules := properties["Rules"].([]interface{})
		require.Len(t, rules, 4, "geo rule plus three managed rule groups")

		seen := map[float64]bool{}
		previous := -1.0
		for _, raw := range rules {
			rule := raw.(map[string]interface{})
			priority := rule["Priority"].(float64)
			assert.False(t, seen[priority], "priority %v assigned twice", priority)
			assert.Greater(t, priority, previous, "priorities must ascend in declaration order")
			seen[priority] = true
			previous = priority
		}

		// The geo rule blocks outright; managed groups only override.
		first := rules[0].(map[string]interface{})
		assert.Equal(t, "BlockDisallowedCountries", first["Name"])
		assert.Contains(t, first, "Action")
		assert.NotContains(t, first, "OverrideAction")
	}

	template.ResourceCountIs(jsii.String("AWS::WAFv2::WebACLAssociation"), jsii.Number(1))
}

func TestGeoRuleSkippedWithoutAllowlist(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedCountries = nil

	template := synthesize(t, cfg)

	webAcls := *template.FindResources(jsii.String("AWS::WAFv2::WebACL"), nil)
	require.Len(t, webAcls, 1)
	for _, webAcl := range webAcls {
		properties := (*webAcl)["Properties"].(map[string]interface{})
		assert.Len(t, properties["Rules"].([]interface{}), 3)
	}
}

func TestObservabilityPack(t *testing.T) {
	template := synthesize(t, testConfig())

	// Four operator alarms plus the two alarms owned by step scaling.
	template.ResourceCountIs(jsii.String("AWS::CloudWatch::Alarm"), jsii.Number(6))
	template.ResourceCountIs(jsii.String("AWS::SNS::Topic"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::SNS::Subscription"), map[string]interface{}{
		"Protocol": "email",
		"Endpoint": "ops@example.com",
	})
	template.HasResourceProperties(jsii.String("AWS::CloudWatch::Alarm"), map[string]interface{}{
		"AlarmDescription":   "p95 target response time > 1s",
		"EvaluationPeriods":  3,
		"DatapointsToAlarm":  2,
		"Threshold":          1,
		"ComparisonOperator": "GreaterThanThreshold",
	})
	template.ResourceCountIs(jsii.String("AWS::CloudWatch::Dashboard"), jsii.Number(1))
}

func TestKnowledgeBucketIsOptional(t *testing.T) {
	withBucket := synthesize(t, testConfig())
	// Knowledge bucket plus access-log bucket.
	withBucket.ResourceCountIs(jsii.String("AWS::S3::Bucket"), jsii.Number(2))
	assert.NotEmpty(t, *withBucket.FindOutputs(jsii.String("KnowledgeBucketName"), nil))

	cfg := testConfig()
	cfg.EnableKnowledgeBucket = false
	withoutBucket := synthesize(t, cfg)
	withoutBucket.ResourceCountIs(jsii.String("AWS::S3::Bucket"), jsii.Number(1))
	assert.Empty(t, *withoutBucket.FindOutputs(jsii.String("KnowledgeBucketName"), nil))
}

func TestDeclaredOutputs(t *testing.T) {
	template := synthesize(t, testConfig())

	for _, name := range []string{"LoadBalancerDNS", "ClusterName", "AlertsSnsTopicArn", "KnowledgeBucketName"} {
		assert.NotEmpty(t, *template.FindOutputs(jsii.String(name), nil), "missing output %s", name)
	}
}

func TestSynthesisIsDeterministic(t *testing.T) {
	first := synthesize(t, testConfig())
	second := synthesize(t, testConfig())

	assert.Equal(t, *first.ToJSON(), *second.ToJSON())
}

func TestAccessLogDeliveryPolicy(t *testing.T) {
	template := synthesize(t, testConfig())

	template.HasResourceProperties(jsii.String("AWS::S3::BucketPolicy"), map[string]interface{}{
		"PolicyDocument": assertions.Match_ObjectLike(&map[string]interface{}{
			"Statement": assertions.Match_ArrayWith(&[]interface{}{
				assertions.Match_ObjectLike(&map[string]interface{}{
					"Sid":    "AWSLogDeliveryWrite",
					"Action": "s3:PutObject",
				}),
			}),
		}),
	})
	template.HasResourceProperties(jsii.String("AWS::ElasticLoadBalancingV2::LoadBalancer"), map[string]interface{}{
		"LoadBalancerAttributes": assertions.Match_ArrayWith(&[]interface{}{
			map[string]interface{}{
				"Key":   "access_logs.s3.enabled",
				"Value": "true",
			},
			map[string]interface{}{
				"Key":   "idle_timeout.timeout_seconds",
				"Value": "120",
			},
		}),
	})
}
