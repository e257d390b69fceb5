package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"vesflix/internal/config"
	"vesflix/internal/storage"
	vesflixs3 "vesflix/internal/storage/s3"
)

func main() {
	configPath := flag.String("config", os.Getenv("VESFLIX_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Use default AWS configuration (from ~/.aws/credentials)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.Region))
	if err != nil {
		log.Fatalf("Unable to load SDK config: %v", err)
	}

	identity, err := sts.NewFromConfig(awsCfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		log.Fatalf("Unable to verify AWS credentials: %v", err)
	}
	fmt.Printf("Using AWS account %s as %s\n", aws.ToString(identity.Account), aws.ToString(identity.Arn))

	bucketName := cfg.Storage.Bucket
	client := vesflixs3.NewS3Client(awsCfg, storage.Config{
		Endpoint:     cfg.Storage.Endpoint,
		UsePathStyle: cfg.Storage.UsePathStyle,
	})

	// Check if bucket exists
	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucketName),
	})
	if err != nil {
		fmt.Printf("Creating bucket %s...\n", bucketName)
		input := &s3.CreateBucketInput{
			Bucket: aws.String(bucketName),
		}

		// Only add location constraint if not in us-east-1
		if awsCfg.Region != "us-east-1" {
			input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
				LocationConstraint: types.BucketLocationConstraint(awsCfg.Region),
			}
		}

		if _, err := client.CreateBucket(ctx, input); err != nil {
			log.Fatalf("Unable to create bucket: %v", err)
		}
	} else {
		fmt.Printf("Bucket %s already exists\n", bucketName)
	}

	// Blobs are private; block every form of public access.
	_, err = client.PutPublicAccessBlock(ctx, &s3.PutPublicAccessBlockInput{
		Bucket: aws.String(bucketName),
		PublicAccessBlockConfiguration: &types.PublicAccessBlockConfiguration{
			BlockPublicAcls:       aws.Bool(true),
			BlockPublicPolicy:     aws.Bool(true),
			IgnorePublicAcls:      aws.Bool(true),
			RestrictPublicBuckets: aws.Bool(true),
		},
	})
	if err != nil {
		log.Printf("Warning: Unable to block public access: %v", err)
	}

	prefix := cfg.Storage.Prefix
	if _, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(prefix),
	}); err != nil {
		log.Printf("Warning: Unable to create folder %s: %v", prefix, err)
	} else {
		fmt.Printf("Created folder: %s\n", prefix)
	}

	fmt.Println("\nSetup completed successfully!")
	fmt.Println("\nBucket configuration:")
	fmt.Printf("- Name: %s\n", bucketName)
	fmt.Printf("- Region: %s\n", awsCfg.Region)
	fmt.Printf("- Video prefix: %s\n", prefix)
}
