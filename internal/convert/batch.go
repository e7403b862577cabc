// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package convert

import (
	"context"
	"os"
	"path/filepath"

	"github.com/lithammer/shortuuid/v4"
)

// BatchRequest describes the conversion of every matching file of a directory
type BatchRequest struct {
	InputDir string
	// OutputDir defaults to InputDir
	OutputDir string
	Quality   string
	Overwrite bool
	// Progress is handed to each conversion
	Progress ProgressFunc
	// OnFile is called after each conversion
	OnFile func(input, output string, err error)
}

// BatchResult lists outputs that were written and inputs that were not, both
// in processing order
type BatchResult struct {
	Reference string
	Succeeded []string
	Failed    []string
}

// Total is the number of files attempted
func (r BatchResult) Total() int {
	return len(r.Succeeded) + len(r.Failed)
}

// Batch converts the matching files of a directory one after another, in
// name order. A missing input directory or one without matches yields an
// empty result.
func (c *Converter) Batch(ctx context.Context, req BatchRequest) BatchResult {
	result := BatchResult{Reference: shortuuid.New()}

	st, err := os.Stat(req.InputDir)
	if err != nil || !st.IsDir() {
		c.logger.Error("input directory does not exist or is not a directory: %s", req.InputDir)
		return result
	}

	outDir := req.OutputDir
	if outDir == "" {
		outDir = req.InputDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		c.logger.Error("create output dir %s: %v", outDir, err)
		return result
	}

	inputs, err := c.findInputs(req.InputDir)
	if err != nil {
		c.logger.Error("read directory %s: %v", req.InputDir, err)
		return result
	}
	if len(inputs) == 0 {
		c.logger.Info("no RMVB files found in %s", req.InputDir)
		return result
	}

	c.logger.Info("found %d RMVB files", len(inputs))

	for i, input := range inputs {
		if ctx.Err() != nil {
			c.logger.Warn("batch interrupted, %d files not converted", len(inputs)-i)
			result.Failed = append(result.Failed, inputs[i:]...)
			break
		}

		output := filepath.Join(outDir, filepath.Base(OutputPath(input)))

		err := c.Run(ctx, Request{
			Input:     input,
			Output:    output,
			Quality:   req.Quality,
			Overwrite: req.Overwrite,
			Reference: result.Reference,
		}, req.Progress)

		if err == nil {
			result.Succeeded = append(result.Succeeded, output)
		} else {
			result.Failed = append(result.Failed, input)
		}
		if req.OnFile != nil {
			req.OnFile(input, output, err)
		}
	}

	c.logger.Info("batch conversion complete, %d of %d files converted", len(result.Succeeded), len(inputs))
	return result
}

// findInputs returns matching regular files of dir, sorted by name. Symlinks
// count when they resolve to a regular file.
func (c *Converter) findInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var inputs []string
	for _, e := range entries {
		if !c.matcher.Match(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		mode := e.Type()
		if mode&os.ModeSymlink != 0 {
			st, err := os.Stat(path)
			if err != nil {
				c.logger.Warn("skip broken link %s: %v", path, err)
				continue
			}
			mode = st.Mode().Type()
		}
		if !mode.IsRegular() {
			continue
		}
		inputs = append(inputs, path)
	}
	return inputs, nil
}
