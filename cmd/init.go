package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-copy/pkg/buildinfo"
	"github.com/paulschiretz/pgl-copy/pkg/config"
	"github.com/paulschiretz/pgl-copy/pkg/flagparse"
	"github.com/paulschiretz/pgl-copy/pkg/plog"
	"github.com/paulschiretz/pgl-copy/pkg/util"
)

// RunInit handles the logic for the 'init' command. It writes a configuration
// file to path, seeded from configPath (or the defaults) and the flags the
// user set.
func RunInit(path, configPath string, flagMap map[string]any) error {
	if path == "" {
		path = config.ConfigFileName
	}
	expanded, err := util.ExpandPath(path)
	if err != nil {
		return configError("invalid config file path", err)
	}
	absPath, err := filepath.Abs(expanded)
	if err != nil {
		return configError("invalid config file path", err)
	}

	baseConfig, err := config.Load(configPath)
	if err != nil {
		plog.Warn("Could not load existing configuration, starting with defaults.", "reason", err)
		baseConfig = config.NewDefault()
	}

	runConfig := config.MergeConfigWithFlags(flagparse.Init, baseConfig, flagMap)
	if err := runConfig.Validate(); err != nil {
		return configError("invalid configuration", err)
	}

	force, _ := flagMap["force"].(bool)
	if !force {
		if _, err := os.Stat(absPath); err == nil {
			fmt.Printf("WARNING: Configuration file already exists at %s.\n", absPath)
			if !PromptForConfirmation("Overwrite it?", false) {
				plog.Info(buildinfo.Name + " init operation canceled.")
				return nil
			}
			force = true
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("could not check config file %s: %w", absPath, err)
		}
	}

	return config.Generate(absPath, runConfig, force)
}

// PromptForConfirmation asks a yes/no question on stdout and reads the answer
// from stdin. An empty answer selects the default.
func PromptForConfirmation(prompt string, defaultYes bool) bool {
	suffix := "[y/N]"
	if defaultYes {
		suffix = "[Y/n]"
	}
	fmt.Printf("%s %s: ", prompt, suffix)

	var response string
	_, _ = fmt.Scanln(&response)
	response = strings.ToLower(strings.TrimSpace(response))

	if response == "" {
		return defaultYes
	}
	return response == "y" || response == "yes"
}
