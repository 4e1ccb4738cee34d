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

// Command agentcorectl is a thin A2A client: it talks to a running
// agentcored node the same way any other peer would, over the JSON-RPC
// /a2a endpoint and the agents.json discovery document, never by reaching
// into the server's store directly.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
)

const (
	envVarServer     = "AGENTCORE_SERVER"
	defaultServerURL = "http://localhost:8080"
)

// CLI mirrors the teacher's declarative kong struct for its own client
// commands (pkg/cli/cli_structs.go): one embedded flag group for
// server/auth, one subcommand per verb.
type CLI struct {
	Agents AgentsCmd `cmd:"" help:"List or inspect agents known to a server."`
	Call   CallCmd   `cmd:"" help:"Send a single message to an agent and print the reply."`
	Chat   ChatCmd   `cmd:"" help:"Start an interactive chat session with an agent."`
	Task   TaskCmd   `cmd:"" help:"Inspect or cancel a task by ID."`
	Config ConfigCmd `cmd:"" help:"Validate a config file without starting a server."`
}

// serverFlags is the flag group every remote-calling command embeds,
// grounded on the teacher's ClientModeFlags.
type serverFlags struct {
	Server string `help:"agentcored base URL." env:"AGENTCORE_SERVER" default:"http://localhost:8080"`
	Token  string `help:"Bearer token for the admission layer." env:"AGENTCORE_TOKEN"`
}

func (f serverFlags) client() *apiClient {
	return newAPIClient(resolveServerURL(f.Server), f.Token)
}

type AgentsCmd struct {
	List AgentsListCmd `cmd:"" default:"1" help:"List every agent the server exposes."`
	Get  AgentsGetCmd  `cmd:"" help:"Show one agent's full AgentSpec."`
}

type AgentsListCmd struct {
	serverFlags
}

func (c *AgentsListCmd) Run() error {
	dir, err := c.client().directory()
	if err != nil {
		return err
	}
	if len(dir.Agents) == 0 {
		fmt.Println("no agents available")
		return nil
	}
	for _, a := range dir.Agents {
		fmt.Printf("%s\t%s\n", a.Name, a.Description)
	}
	return nil
}

type AgentsGetCmd struct {
	serverFlags
	ID string `arg:"" help:"Agent ID (without the agent_ prefix)."`
}

func (c *AgentsGetCmd) Run() error {
	var spec map[string]any
	if err := c.client().getJSON("/agents/"+c.ID, &spec); err != nil {
		return err
	}
	return printJSON(spec)
}

type CallCmd struct {
	serverFlags
	Agent   string `arg:"" help:"Agent ID to call."`
	Message string `arg:"" help:"Message text to send."`
}

func (c *CallCmd) Run() error {
	events, err := c.client().streamChat(c.Agent, c.Message, "")
	if err != nil {
		return err
	}
	return printEvents(events)
}

type ChatCmd struct {
	serverFlags
	Agent string `arg:"" help:"Agent ID to chat with."`
}

func (c *ChatCmd) Run() error {
	cl := c.client()
	fmt.Printf("chatting with %s (Ctrl-D to exit)\n", c.Agent)
	reader := newLineReader(os.Stdin)
	threadID := ""
	for {
		fmt.Print("> ")
		line, ok := reader.next()
		if !ok {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		events, err := cl.streamChat(c.Agent, line, threadID)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		if err := printEvents(events); err != nil {
			fmt.Println("error:", err)
		}
		fmt.Println()
	}
}

type TaskCmd struct {
	Get    TaskGetCmd    `cmd:"" help:"Fetch a task by ID via the A2A endpoint."`
	Cancel TaskCancelCmd `cmd:"" help:"Cancel a running task by ID."`
}

type TaskGetCmd struct {
	serverFlags
	TaskID string `arg:"" help:"Task ID to retrieve."`
}

func (c *TaskGetCmd) Run() error {
	task, err := c.client().a2aClient().GetTask(cliContext(), c.TaskID)
	if err != nil {
		return err
	}
	return printJSON(task)
}

type TaskCancelCmd struct {
	serverFlags
	TaskID string `arg:"" help:"Task ID to cancel."`
	Reason string `help:"Cancellation reason."`
}

func (c *TaskCancelCmd) Run() error {
	task, err := c.client().a2aClient().CancelTask(cliContext(), c.TaskID, c.Reason)
	if err != nil {
		return err
	}
	return printJSON(task)
}

// ConfigCmd validates a config file locally, the same load+validate path
// agentcored's own Validate subcommand uses. Grounded on the teacher
// shipping config validation from its client-facing pkg/cli
// (validate_command.go) rather than only from cmd/hector.
type ConfigCmd struct {
	Path string `arg:"" help:"Path to the config file to validate." type:"path"`
}

func (c *ConfigCmd) Run() error {
	return validateConfigFile(c.Path)
}

func resolveServerURL(server string) string {
	if server == "" {
		if env := os.Getenv(envVarServer); env != "" {
			server = env
		} else {
			return defaultServerURL
		}
	}
	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "http://" + server
	}
	return strings.TrimSuffix(server, "/")
}

func printJSON(v any) error {
	enc := newPrettyEncoder(os.Stdout)
	return enc.Encode(v)
}

var httpTimeout = 60 * time.Second

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("agentcorectl"),
		kong.Description("Agent Execution Core admin and chat client"),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
