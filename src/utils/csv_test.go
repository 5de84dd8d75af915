package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"cryptofolio/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVToMap(t *testing.T) {
	t.Run("reads two columns skipping the header", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "coins.csv")
		content := "coin_id,symbol\nbitcoin, BTC\nethereum,ETH\n,XRP\ncardano,\n"
		require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

		coins, err := utils.CSVToMap(file)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"bitcoin": "BTC", "ethereum": "ETH"}, coins)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := utils.CSVToMap(filepath.Join(t.TempDir(), "nope.csv"))
		assert.Error(t, err)
	})
}
