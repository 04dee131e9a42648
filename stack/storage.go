package stack

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/jsii-runtime-go"
)

// StorageResources holds the optional knowledge-base bucket. Bucket is
// nil when the bucket is disabled in configuration.
type StorageResources struct {
	Bucket awss3.IBucket
}

// createStorageResources creates the S3 bucket the chat UI reads
// knowledge-base files from. Read access is granted to the task role
// when the service is created.
func createStorageResources(resources *Resources) *StorageResources {
	if !resources.Config.EnableKnowledgeBucket {
		return &StorageResources{}
	}

	bucket := awss3.NewBucket(resources.Stack, jsii.String("KnowledgeBucket"), &awss3.BucketProps{
		RemovalPolicy:     awscdk.RemovalPolicy_DESTROY,
		AutoDeleteObjects: jsii.Bool(true),
	})

	return &StorageResources{Bucket: bucket}
}
