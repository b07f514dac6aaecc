// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/coremount/vnodefs/cfg"
	"github.com/coremount/vnodefs/internal/logger"
	"github.com/coremount/vnodefs/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error
	unmarshalErr  error
	MountConfig   cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "vnodefsd [flags] mount_point",
	Short: "Run the vnode operations layer against a mount point",
	Long: `vnodefsd bridges a host VFS's vnode calls to a user-space daemon over
a wire protocol. It builds the session and FS described by spec.md from the
given configuration; the transport connection itself and the host VFS
bridge's actual mount syscall are supplied by the caller, not by this
command.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configFileErr != nil {
			return configFileErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}

		mountPoint, err := populateArgs(args)
		if err != nil {
			return err
		}

		if err := cfg.Rationalize(&MountConfig); err != nil {
			return err
		}
		if err := cfg.ValidateConfig(&MountConfig); err != nil {
			return err
		}

		if err := logger.InitLogFile(MountConfig.Logging); err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}

		if fp := string(MountConfig.Logging.FilePath); fp != "" {
			if err := debug.SetCrashOutput(NewCrashWriter(fp), debug.CrashOptions{}); err != nil {
				logger.Errorf("setting crash output: %v", err)
			}
		}

		logger.Infof("config loaded for mount point %q; waiting on a transport to BuildMount", mountPoint)
		return nil
	},
}

func populateArgs(args []string) (mountPoint string, err error) {
	mountPoint, err = util.GetResolvedPath(args[0])
	if err != nil {
		return "", fmt.Errorf("canonicalizing mount point: %w", err)
	}
	return mountPoint, nil
}

// Execute runs the root command, exiting the process on error. main()
// should call this directly; tests should exercise rootCmd.RunE instead.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to the config file")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())

	// Log rotation isn't exposed as a flag; seed its defaults the same way
	// GetDefaultLoggingConfig does so a bare invocation still validates.
	def := cfg.GetDefaultLoggingConfig()
	viper.SetDefault("logging.log-rotate.max-file-size-mb", def.LogRotate.MaxFileSizeMb)
	viper.SetDefault("logging.log-rotate.backup-file-count", def.LogRotate.BackupFileCount)
	viper.SetDefault("logging.log-rotate.compress", def.LogRotate.Compress)
}

func initConfig() {
	viper.SetConfigType("yaml")

	if cfgFile == "" {
		unmarshalErr = viper.Unmarshal(&MountConfig, viper.DecodeHook(cfg.DecodeHook()))
		return
	}

	resolved, err := util.GetResolvedPath(cfgFile)
	if err != nil {
		configFileErr = fmt.Errorf("resolving config file path: %w", err)
		return
	}
	viper.SetConfigFile(resolved)

	if err := viper.ReadInConfig(); err != nil {
		configFileErr = fmt.Errorf("reading config file: %w", err)
		return
	}
	unmarshalErr = viper.Unmarshal(&MountConfig, viper.DecodeHook(cfg.DecodeHook()))
}
