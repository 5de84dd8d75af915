package aws_handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
)

type SecretManager struct {
	svc secretsmanageriface.SecretsManagerAPI
}

func NewSecretManager(svc secretsmanageriface.SecretsManagerAPI) *SecretManager {
	return &SecretManager{svc: svc}
}

func (s *SecretManager) GetSecretValue(ctx context.Context, secretID string) (string, error) {
	input := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	}

	result, err := s.svc.GetSecretValueWithContext(ctx, input)
	if err != nil {
		return "", err
	}
	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", secretID)
	}
	return *result.SecretString, nil
}

// GetDatabasePassword reads a database secret. Secrets stored as the JSON
// document RDS generates ({"username": ..., "password": ...}) yield the
// password field; any other value is returned as is.
func (s *SecretManager) GetDatabasePassword(ctx context.Context, secretID string) (string, error) {
	value, err := s.GetSecretValue(ctx, secretID)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(strings.TrimSpace(value), "{") {
		return value, nil
	}

	var doc struct {
		Password string `json:"password"`
	}
	if err := json.Unmarshal([]byte(value), &doc); err != nil {
		return "", fmt.Errorf("secret %s is not valid json: %w", secretID, err)
	}
	if doc.Password == "" {
		return "", fmt.Errorf("secret %s has no password field", secretID)
	}
	return doc.Password, nil
}
