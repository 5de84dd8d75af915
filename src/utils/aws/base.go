package aws_handler

import (
	"errors"

	"cryptofolio/src/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
)

// AWSHandler groups the AWS clients the service reads its secrets through.
type AWSHandler struct {
	SecretManager *SecretManager
}

// NewAWSHandler opens a session for the configured region. No request is sent
// until a secret is read.
func NewAWSHandler(cfg config.AWSConfig) (*AWSHandler, error) {
	if cfg.Region == "" {
		return nil, errors.New("aws region is not configured")
	}
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, err
	}

	return &AWSHandler{
		SecretManager: NewSecretManager(secretsmanager.New(sess)),
	}, nil
}
