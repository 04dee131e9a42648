package stack

const (
	// DefaultResourceTagKey and DefaultResourceTagValue are applied to
	// every taggable resource in the stack.
	DefaultResourceTagKey   = "project"
	DefaultResourceTagValue = "chat-ui"

	// EC2 capacity behind the cluster's capacity provider.
	InstanceClass       = "t3.small"
	InstanceMinCapacity = 1
	InstanceDesired     = 2
	InstanceMaxCapacity = 4

	// TargetCapacityPercent is the capacity provider's managed-scaling
	// target: the ASG keeps enough instances that reserved capacity
	// stays at this share.
	TargetCapacityPercent = 80

	// Bridge-mode tasks get ephemeral host ports from this range; the
	// ALB must be able to reach all of it.
	DynamicPortRangeStart = 32768
	DynamicPortRangeEnd   = 65535

	TaskMemoryLimitMiB = 1024

	// Target-group health check. Timeout must stay strictly below the
	// interval or CloudFormation rejects the target group.
	HealthCheckPath             = "/"
	HealthCheckHealthyCodes     = "200-399"
	HealthCheckIntervalSeconds  = 30
	HealthCheckTimeoutSeconds   = 20
	HealthyThresholdCount       = 2
	UnhealthyThresholdCount     = 5
	HealthCheckGraceSeconds     = 120
	DeregistrationDelaySeconds  = "30"
	LoadBalancerIdleTimeoutSecs = "120"

	// Task autoscaling cooldowns.
	ScaleCooldownSeconds = 60

	AccessLogRetentionDays = 30
	AccessLogPrefix        = "alb-logs"
)
