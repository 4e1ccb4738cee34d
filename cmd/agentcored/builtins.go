// Copyright 2025 The Agentcore Authors
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

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentcore/runtime/pkg/tool/functiontool"
)

// readFileRequest is the decoded shape of a read_file function call,
// grounded on the teacher's ReadFileTool (pkg/tools/read_file.go): a path
// relative to a fixed working directory, never an absolute escape hatch.
type readFileRequest struct {
	Path string `mapstructure:"path"`
}

const readFileMaxBytes = 1 << 20 // 1MB read cap; the Runner's trace preview is cut at 5KB separately

// builtinFunctions returns the fixed set of in-process function tools this
// deployment ships, keyed by the name a `type: function` YAML entry
// references. Function tools take their Go closure from here, not from
// config data (functiontool.Def.Fn has no YAML representation).
func builtinFunctions(workingDir string) map[string]functiontool.Def {
	return map[string]functiontool.Def{
		"read_file": {
			Name:        "read_file",
			Description: "Read the contents of a file relative to the server's working directory.",
			Request:     readFileRequest{},
			Fn:          readFileFn(workingDir),
		},
		"current_time": {
			Name:        "current_time",
			Description: "Return the current UTC time in RFC3339 format.",
			Fn: func(ctx context.Context, input map[string]any) (map[string]any, error) {
				return map[string]any{"now": time.Now().UTC().Format(time.RFC3339)}, nil
			},
		},
	}
}

func readFileFn(workingDir string) functiontool.Func {
	return func(ctx context.Context, input map[string]any) (map[string]any, error) {
		rel, _ := input["path"].(string)
		if rel == "" {
			return nil, fmt.Errorf("read_file: path is required")
		}
		if strings.Contains(rel, "..") {
			return nil, fmt.Errorf("read_file: path must not contain '..'")
		}
		full := filepath.Join(workingDir, rel)
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("read_file: %w", err)
		}
		if len(data) > readFileMaxBytes {
			data = data[:readFileMaxBytes]
		}
		return map[string]any{"content": string(data)}, nil
	}
}
