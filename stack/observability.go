package stack

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatchactions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssnssubscriptions"
	"github.com/aws/jsii-runtime-go"
)

// ObservabilityResources holds the access-log bucket, the alerts topic
// and the dashboard.
type ObservabilityResources struct {
	AccessLogsBucket awss3.Bucket
	AlertsTopic      awssns.Topic
	Dashboard        awscloudwatch.Dashboard
}

// createObservabilityResources delivers ALB access logs to S3 with a
// 30-day retention, raises alarms on latency, target health and 5xx
// rates into an SNS topic, and builds the operations dashboard.
func createObservabilityResources(resources *Resources, service *ServiceResources) *ObservabilityResources {
	cfg := resources.Config

	accessLogsBucket := createAccessLogsBucket(resources, service)

	alertsTopic := awssns.NewTopic(resources.Stack, jsii.String("AlertsTopic"), &awssns.TopicProps{})
	if cfg.NotifyEmail != "" {
		alertsTopic.AddSubscription(awssnssubscriptions.NewEmailSubscription(jsii.String(cfg.NotifyEmail), &awssnssubscriptions.EmailSubscriptionProps{}))
	}

	oneMinute := awscdk.Duration_Minutes(jsii.Number(1))

	p95Latency := service.TargetGroup.MetricTargetResponseTime(&awscloudwatch.MetricOptions{
		Statistic: jsii.String("p95"),
		Period:    oneMinute,
	})
	unhealthyHosts := service.TargetGroup.MetricUnhealthyHostCount(&awscloudwatch.MetricOptions{
		Statistic: jsii.String("Average"),
		Period:    oneMinute,
	})
	httpTarget5xx := awscloudwatch.NewMetric(&awscloudwatch.MetricProps{
		Namespace:  jsii.String("AWS/ApplicationELB"),
		MetricName: jsii.String("HTTPCode_Target_5XX_Count"),
		DimensionsMap: &map[string]*string{
			"TargetGroup":  service.TargetGroup.TargetGroupFullName(),
			"LoadBalancer": service.LoadBalancer.LoadBalancerFullName(),
		},
		Statistic: jsii.String("Sum"),
		Period:    oneMinute,
	})
	httpElb5xx := awscloudwatch.NewMetric(&awscloudwatch.MetricProps{
		Namespace:  jsii.String("AWS/ApplicationELB"),
		MetricName: jsii.String("HTTPCode_ELB_5XX_Count"),
		DimensionsMap: &map[string]*string{
			"LoadBalancer": service.LoadBalancer.LoadBalancerFullName(),
		},
		Statistic: jsii.String("Sum"),
		Period:    oneMinute,
	})

	// Alarms notify the topic on each transition into ALARM once the
	// configured share of datapoints breaches the threshold.
	createAlarm(resources, alertsTopic, alarmSpec{
		id:          "HighP95Latency",
		metric:      p95Latency,
		threshold:   1.0,
		periods:     3,
		datapoints:  2,
		description: "p95 target response time > 1s",
	})
	createAlarm(resources, alertsTopic, alarmSpec{
		id:          "UnhealthyHostsAlarm",
		metric:      unhealthyHosts,
		threshold:   0.5,
		periods:     2,
		datapoints:  1,
		description: "Any target becomes unhealthy",
	})
	createAlarm(resources, alertsTopic, alarmSpec{
		id:          "Target5XXAlarm",
		metric:      httpTarget5xx,
		threshold:   5,
		periods:     3,
		datapoints:  2,
		description: "Target group returning 5xx errors",
	})
	createAlarm(resources, alertsTopic, alarmSpec{
		id:          "Elb5XXAlarm",
		metric:      httpElb5xx,
		threshold:   5,
		periods:     3,
		datapoints:  2,
		description: "ALB (frontend) returning 5xx errors",
	})

	dashboard := awscloudwatch.NewDashboard(resources.Stack, jsii.String("Dashboard"), &awscloudwatch.DashboardProps{
		DashboardName: jsii.String("ChatUiEcsDashboard"),
	})
	dashboard.AddWidgets(
		awscloudwatch.NewGraphWidget(&awscloudwatch.GraphWidgetProps{
			Title: jsii.String("ECS CPU Utilization (%)"),
			Left: &[]awscloudwatch.IMetric{
				service.EcsService.MetricCpuUtilization(&awscloudwatch.MetricOptions{
					Statistic: jsii.String("Average"),
					Period:    oneMinute,
				}),
			},
		}),
		awscloudwatch.NewGraphWidget(&awscloudwatch.GraphWidgetProps{
			Title: jsii.String("ALB Request Count (Sum/min)"),
			Left: &[]awscloudwatch.IMetric{
				service.LoadBalancer.MetricRequestCount(&awscloudwatch.MetricOptions{
					Statistic: jsii.String("Sum"),
					Period:    oneMinute,
				}),
			},
		}),
		awscloudwatch.NewGraphWidget(&awscloudwatch.GraphWidgetProps{
			Title: jsii.String("ALB Healthy (L) vs Unhealthy (R)"),
			Left: &[]awscloudwatch.IMetric{
				service.TargetGroup.MetricHealthyHostCount(&awscloudwatch.MetricOptions{
					Statistic: jsii.String("Average"),
					Period:    oneMinute,
				}),
			},
			Right: &[]awscloudwatch.IMetric{unhealthyHosts},
		}),
		awscloudwatch.NewGraphWidget(&awscloudwatch.GraphWidgetProps{
			Title: jsii.String("Target Response Time (p50 & p95)"),
			Left: &[]awscloudwatch.IMetric{
				service.TargetGroup.MetricTargetResponseTime(&awscloudwatch.MetricOptions{
					Statistic: jsii.String("p50"),
					Period:    oneMinute,
				}),
				p95Latency,
			},
		}),
		awscloudwatch.NewGraphWidget(&awscloudwatch.GraphWidgetProps{
			Title: jsii.String("HTTP 5xx (Target vs ELB)"),
			Left:  &[]awscloudwatch.IMetric{httpTarget5xx},
			Right: &[]awscloudwatch.IMetric{httpElb5xx},
		}),
	)

	return &ObservabilityResources{
		AccessLogsBucket: accessLogsBucket,
		AlertsTopic:      alertsTopic,
		Dashboard:        dashboard,
	}
}

// createAccessLogsBucket creates the ALB access-log delivery bucket.
// Log delivery writes with the bucket-owner-full-control ACL, so the
// bucket must keep object-writer ownership, and the regional ELB
// delivery account needs PutObject and GetBucketAcl on it.
func createAccessLogsBucket(resources *Resources, service *ServiceResources) awss3.Bucket {
	bucket := awss3.NewBucket(resources.Stack, jsii.String("AlbAccessLogs"), &awss3.BucketProps{
		ObjectOwnership: awss3.ObjectOwnership_OBJECT_WRITER,
		LifecycleRules: &[]*awss3.LifecycleRule{
			{
				Enabled:    jsii.Bool(true),
				Expiration: awscdk.Duration_Days(jsii.Number(AccessLogRetentionDays)),
			},
		},
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		EnforceSSL:        jsii.Bool(true),
	})

	deliveryPrincipal := awsiam.NewArnPrincipal(jsii.String(
		fmt.Sprintf("arn:aws:iam::%s:root", resources.Config.ElbLogDeliveryAccount),
	))
	bucket.AddToResourcePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Sid:        jsii.String("AWSLogDeliveryWrite"),
		Effect:     awsiam.Effect_ALLOW,
		Principals: &[]awsiam.IPrincipal{deliveryPrincipal},
		Actions:    jsii.Strings("s3:PutObject"),
		Resources: jsii.Strings(
			fmt.Sprintf("%s/%s/AWSLogs/%s/*", *bucket.BucketArn(), AccessLogPrefix, resources.Account),
		),
		Conditions: &map[string]interface{}{
			"StringEquals": map[string]interface{}{
				"s3:x-amz-acl": "bucket-owner-full-control",
			},
		},
	}))
	bucket.AddToResourcePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Sid:        jsii.String("AWSLogDeliveryCheck"),
		Effect:     awsiam.Effect_ALLOW,
		Principals: &[]awsiam.IPrincipal{deliveryPrincipal},
		Actions:    jsii.Strings("s3:GetBucketAcl"),
		Resources:  &[]*string{bucket.BucketArn()},
	}))

	service.LoadBalancer.SetAttribute(jsii.String("access_logs.s3.enabled"), jsii.String("true"))
	service.LoadBalancer.SetAttribute(jsii.String("access_logs.s3.bucket"), bucket.BucketName())
	service.LoadBalancer.SetAttribute(jsii.String("access_logs.s3.prefix"), jsii.String(AccessLogPrefix))

	// The bucket policy must exist before the ALB starts delivering.
	if bucket.Policy() != nil {
		service.LoadBalancer.Node().AddDependency(bucket.Policy())
	}

	return bucket
}

type alarmSpec struct {
	id          string
	metric      awscloudwatch.IMetric
	threshold   float64
	periods     float64
	datapoints  float64
	description string
}

func createAlarm(resources *Resources, topic awssns.Topic, spec alarmSpec) awscloudwatch.Alarm {
	alarm := awscloudwatch.NewAlarm(resources.Stack, jsii.String(spec.id), &awscloudwatch.AlarmProps{
		Metric:             spec.metric,
		Threshold:          jsii.Number(spec.threshold),
		EvaluationPeriods:  jsii.Number(spec.periods),
		DatapointsToAlarm:  jsii.Number(spec.datapoints),
		ComparisonOperator: awscloudwatch.ComparisonOperator_GREATER_THAN_THRESHOLD,
		AlarmDescription:   jsii.String(spec.description),
	})
	alarm.AddAlarmAction(awscloudwatchactions.NewSnsAction(topic))
	return alarm
}
