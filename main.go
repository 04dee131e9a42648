// Entry point for the chat UI infrastructure app: loads the deployment
// configuration, assembles the stack and synthesizes the CloudFormation
// template for cdk deploy.
package main

import (
	"log"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/joho/godotenv"

	"chat-ui-infra/config"
	"chat-ui-infra/stack"
)

func main() {
	defer jsii.Close()

	// Local development convenience; deployed pipelines set real env.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration rejected before assembly: %v", err)
	}

	app := awscdk.NewApp(nil)

	props := &stack.ChatUiStackProps{
		Config: cfg,
	}
	if cfg.Account != "" && cfg.Region != "" {
		props.Env = &awscdk.Environment{
			Account: jsii.String(cfg.Account),
			Region:  jsii.String(cfg.Region),
		}
	}
	if cfg.SynthQualifier != "" {
		synthProps := &awscdk.DefaultStackSynthesizerProps{
			Qualifier:    jsii.String(cfg.SynthQualifier),
			BucketPrefix: jsii.String(""),
		}
		if cfg.SynthAssetsBucket != "" {
			synthProps.FileAssetsBucketName = jsii.String(cfg.SynthAssetsBucket)
		}
		props.Synthesizer = awscdk.NewDefaultStackSynthesizer(synthProps)
	}

	stack.NewChatUiStack(app, "ChatUiStack", props)

	app.Synth(nil)
}
