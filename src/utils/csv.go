package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// CSVToMap reads a two column CSV file (header row first) and returns a map
// from the first column to the second. Rows with an empty value are skipped.
func CSVToMap(filePath string) (map[string]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open the file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read the file: %v", err)
	}

	data := make(map[string]string)
	for i, row := range rows {
		if i == 0 {
			// Skip header row
			continue
		}
		if len(row) < 2 {
			continue
		}

		key := strings.TrimSpace(row[0])
		value := strings.TrimSpace(row[1])
		if key == "" || value == "" {
			continue
		}
		data[key] = value
	}

	return data, nil
}
