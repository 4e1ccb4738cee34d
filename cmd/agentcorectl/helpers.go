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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/agentcore/runtime/pkg/config"
	"github.com/agentcore/runtime/pkg/config/provider"
	"github.com/agentcore/runtime/pkg/logger"
	"github.com/agentcore/runtime/pkg/runner"
	"github.com/agentcore/runtime/pkg/stream"
)

// cliContext is the single background context every one-shot command
// call uses; agentcorectl has no long-running state to cancel against.
func cliContext() context.Context {
	return context.Background()
}

func newPrettyEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc
}

// printEvents renders a decoded stream.Frame sequence to stdout the way
// the teacher's chat/call commands render A2A streaming events: tokens
// concatenated inline, terminal status reported on failure.
func printEvents(frames []stream.Frame) error {
	for _, f := range frames {
		switch f.Type {
		case string(runner.EventToken):
			fmt.Print(f.Token)
		case string(runner.EventError):
			fmt.Printf("\nerror: %s\n", f.Error)
			return fmt.Errorf("run failed: %s", f.Error)
		case string(runner.EventDone):
			fmt.Println()
		}
	}
	return nil
}

// lineReader is a minimal line-at-a-time stdin reader for the chat REPL,
// grounded on the teacher's bufio.NewReader(os.Stdin) loop in
// cmd/hector/commands.go's executeChatCommand.
type lineReader struct {
	scanner *bufio.Scanner
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{scanner: bufio.NewScanner(r)}
}

func (l *lineReader) next() (string, bool) {
	if !l.scanner.Scan() {
		return "", false
	}
	return l.scanner.Text(), true
}

// validateConfigFile loads a config through the same Loader.Load path
// agentcored itself uses, which already runs SetDefaults and Validate
// (cross-referencing every agent's tool list against the tools map, and
// every AgentSpec's own invariants). Tool-factory construction is
// deliberately not repeated here: building a tool requires live
// dependencies (an HTTP client, an agent Directory) that only exist
// inside a running server.
func validateConfigFile(path string) error {
	log := logger.Get()
	prov, err := provider.NewFileProvider(path, log)
	if err != nil {
		return err
	}
	loader := config.NewLoader(prov, config.WithLogger(log))
	defer loader.Close()

	cfg, err := loader.Load(cliContext())
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "config valid: %d agent(s), %d tool(s), %d workflow(s)\n", len(cfg.Agents), len(cfg.Tools), len(cfg.Workflows))
	return nil
}
