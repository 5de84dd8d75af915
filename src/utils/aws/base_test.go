package aws_handler_test

import (
	"testing"

	"cryptofolio/src/config"
	aws_handler "cryptofolio/src/utils/aws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAWSHandler(t *testing.T) {
	t.Run("region is required", func(t *testing.T) {
		_, err := aws_handler.NewAWSHandler(config.AWSConfig{})
		assert.Error(t, err)
	})

	t.Run("endpoint override", func(t *testing.T) {
		handler, err := aws_handler.NewAWSHandler(config.AWSConfig{Region: "eu-west-1", Endpoint: "http://localhost:4566"})
		require.NoError(t, err)
		require.NotNil(t, handler.SecretManager)
	})
}
