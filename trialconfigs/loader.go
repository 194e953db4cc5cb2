package trialconfigs

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/reusee/trials/configs"
	"github.com/reusee/trials/logs"
)

//go:embed schema.cue
var schema string

func (Module) ConfigsLoader(
	logger logs.Logger,
) configs.Loader {

	var paths []string
	defer func() {
		if len(paths) > 0 {
			logger.Info("config file",
				"paths", paths,
			)
		}
	}()

	filenames := []string{
		"trials.cue",
		".trials.cue",
	}

	// working directory
	workingDir, err := os.Getwd()
	if err == nil {
		for _, filename := range filenames {
			path := filepath.Join(workingDir, filename)
			_, err := os.Stat(path)
			if err == nil {
				paths = append(paths, path)
			}
		}
	}

	// user config dir
	configDir, err := os.UserConfigDir()
	if err == nil {
		for _, filename := range filenames {
			path := filepath.Join(configDir, filename)
			_, err := os.Stat(path)
			if err == nil {
				paths = append(paths, path)
			}
		}
	}

	// system wide dir
	for _, filename := range filenames {
		path := filepath.Join("/etc", filename)
		if _, err := os.Stat(path); err == nil {
			paths = append(paths, path)
		}
	}

	return configs.NewLoader(paths, schema)
}

// Env is the process environment after loading .env from the working directory.
type Env func(key string) string

func (Module) Env(
	logger logs.Logger,
) Env {
	if err := godotenv.Load(); err == nil {
		logger.Info("env file loaded")
	}
	return os.Getenv
}
