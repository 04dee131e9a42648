package stack

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awswafv2"
	"github.com/aws/jsii-runtime-go"
)

// createFirewallResources creates the regional Web ACL and associates
// it with the load balancer. Rules are evaluated priority-ascending:
// the optional geo rule blocks on match, the managed rule groups run
// with override action none and apply their own internal verdicts.
// Priorities come from a single ascending counter so they are pairwise
// distinct regardless of which rules are enabled.
func createFirewallResources(resources *Resources, service *ServiceResources) awswafv2.CfnWebACL {
	cfg := resources.Config

	priority := 0
	nextPriority := func() *float64 {
		p := priority
		priority++
		return jsii.Number(float64(p))
	}

	var rules []interface{}

	// Geo allowlist. This blocks everything not originating from the
	// listed countries, with no carve-out for external health checkers
	// or synthetic monitors outside the allowlist.
	if len(cfg.AllowedCountries) > 0 {
		rules = append(rules, &awswafv2.CfnWebACL_RuleProperty{
			Name:     jsii.String("BlockDisallowedCountries"),
			Priority: nextPriority(),
			Action: &awswafv2.CfnWebACL_RuleActionProperty{
				Block: &awswafv2.CfnWebACL_BlockActionProperty{},
			},
			Statement: &awswafv2.CfnWebACL_StatementProperty{
				NotStatement: &awswafv2.CfnWebACL_NotStatementProperty{
					Statement: &awswafv2.CfnWebACL_StatementProperty{
						GeoMatchStatement: &awswafv2.CfnWebACL_GeoMatchStatementProperty{
							CountryCodes: jsii.Strings(cfg.AllowedCountries...),
						},
					},
				},
			},
			VisibilityConfig: visibilityConfig("BlockDisallowedCountries"),
		})
	}

	for _, group := range []struct {
		rule       string
		managed    string
		metricName string
	}{
		{"CommonRuleSet", "AWSManagedRulesCommonRuleSet", "CommonRules"},
		{"SQLiRuleSet", "AWSManagedRulesSQLiRuleSet", "SQLiRules"},
		{"BadInputsRuleSet", "AWSManagedRulesKnownBadInputsRuleSet", "BadInputs"},
	} {
		rules = append(rules, &awswafv2.CfnWebACL_RuleProperty{
			Name:     jsii.String(group.rule),
			Priority: nextPriority(),
			OverrideAction: &awswafv2.CfnWebACL_OverrideActionProperty{
				None: map[string]interface{}{},
			},
			Statement: &awswafv2.CfnWebACL_StatementProperty{
				ManagedRuleGroupStatement: &awswafv2.CfnWebACL_ManagedRuleGroupStatementProperty{
					VendorName: jsii.String("AWS"),
					Name:       jsii.String(group.managed),
				},
			},
			VisibilityConfig: visibilityConfig(group.metricName),
		})
	}

	webAcl := awswafv2.NewCfnWebACL(resources.Stack, jsii.String("WebAcl"), &awswafv2.CfnWebACLProps{
		Scope: jsii.String("REGIONAL"),
		DefaultAction: &awswafv2.CfnWebACL_DefaultActionProperty{
			Allow: &awswafv2.CfnWebACL_AllowActionProperty{},
		},
		VisibilityConfig: visibilityConfig("WebAcl"),
		Rules:            rules,
	})

	awswafv2.NewCfnWebACLAssociation(resources.Stack, jsii.String("WebAclAssoc"), &awswafv2.CfnWebACLAssociationProps{
		ResourceArn: service.LoadBalancer.LoadBalancerArn(),
		WebAclArn:   webAcl.AttrArn(),
	})

	return webAcl
}

func visibilityConfig(metricName string) *awswafv2.CfnWebACL_VisibilityConfigProperty {
	return &awswafv2.CfnWebACL_VisibilityConfigProperty{
		CloudWatchMetricsEnabled: jsii.Bool(true),
		SampledRequestsEnabled:   jsii.Bool(true),
		MetricName:               jsii.String(metricName),
	}
}
