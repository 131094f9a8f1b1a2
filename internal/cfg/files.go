package cfg

import (
	"encoding/json"
	"fmt"
	"os"

	"mediadl/internal/models"

	"github.com/spf13/viper"
)

// loadConfigFile loads a viper-readable config file.
func loadConfigFile(file string) error {
	if err := checkFile(file); err != nil {
		return err
	}

	viper.SetConfigFile(file)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed loading config file %q: %w", file, err)
	}
	return nil
}

// readCatalog reads a JSON array of formats.
func readCatalog(file string) ([]models.Format, error) {
	if err := checkFile(file); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var catalog []models.Format
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("invalid catalog %q: %w", file, err)
	}
	return catalog, nil
}

// checkFile ensures the path exists and is a regular file.
func checkFile(file string) error {
	info, err := os.Stat(file)
	if err != nil {
		return fmt.Errorf("failed check for file path: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("file entered %q is a directory, should be a file", file)
	}
	return nil
}
