// stack-outputs prints the outputs of the deployed stack as
// KEY=VALUE lines, so deploy scripts can read back LoadBalancerDNS and
// friends without parsing cdk output.
package main

import (
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudformation"
	"github.com/spf13/cobra"
)

func main() {
	var stackName string
	var region string

	cmd := &cobra.Command{
		Use:   "stack-outputs",
		Short: "Print the CloudFormation outputs of the deployed chat UI stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printOutputs(cmd, stackName, region)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&stackName, "stack", "ChatUiStack", "CloudFormation stack name")
	cmd.Flags().StringVar(&region, "region", "", "AWS region (defaults to the SDK chain)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func printOutputs(cmd *cobra.Command, stackName, region string) error {
	awsConfig := aws.NewConfig()
	if region != "" {
		awsConfig = awsConfig.WithRegion(region)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *awsConfig,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return fmt.Errorf("failed to create AWS session: %w", err)
	}

	client := cloudformation.New(sess)
	result, err := client.DescribeStacks(&cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		return fmt.Errorf("failed to describe stack %q: %w", stackName, err)
	}
	if len(result.Stacks) == 0 {
		return fmt.Errorf("stack %q not found", stackName)
	}

	for _, output := range result.Stacks[0].Outputs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", aws.StringValue(output.OutputKey), aws.StringValue(output.OutputValue))
	}
	return nil
}
