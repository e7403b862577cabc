// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZSC714725/rmvbconv/internal/display"
)

func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Show format and stream information of a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			a, err := setup(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := a.ffmpeg.Prober().Info(cmd.Context(), args[0])
			if err != nil {
				a.logger.Error("get video info failed: %v", err)
				return fmt.Errorf("get video info: %w", err)
			}

			display.Info(cmd.OutOrStdout(), info)
			return nil
		},
	}
}
