// Package paths initializes mediadl's filepaths, directories, etc.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mediadl/internal/domain/consts"
)

const (
	progDir     = ".mediadl"
	dbFile      = "mediadl.db"
	logFile     = "mediadl.log"
	downloadDir = "Downloads"
)

// File and directory path strings.
var (
	HomeProgDir        string
	DBFilePath         string
	LogFilePath        string
	DefaultDownloadDir string
)

// InitProgFilesDirs initializes necessary program directories and filepaths.
func InitProgFilesDirs() error {
	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		return errors.New("failed to get home directory")
	}

	// Home program dir ~/.mediadl
	HomeProgDir = filepath.Join(userHomeDir, progDir)
	if _, err := os.Stat(HomeProgDir); os.IsNotExist(err) {
		if err := os.MkdirAll(HomeProgDir, consts.PermsHomeProgDir); err != nil {
			return fmt.Errorf("failed to make directories: %w", err)
		}
	}

	DBFilePath = filepath.Join(HomeProgDir, dbFile)
	LogFilePath = filepath.Join(HomeProgDir, logFile)
	DefaultDownloadDir = filepath.Join(userHomeDir, downloadDir)
	return nil
}
