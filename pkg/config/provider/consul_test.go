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

package provider

import (
	"context"
	"testing"

	"github.com/hashicorp/consul/api"
)

// TestConsulProviderIntegration requires a reachable Consul agent and is
// skipped otherwise; it is the KV round-trip equivalent of the teacher's
// own consul integration test.
func TestConsulProviderIntegration(t *testing.T) {
	client, err := api.NewClient(api.DefaultConfig())
	if err != nil {
		t.Skipf("consul client unavailable: %v", err)
	}
	if _, _, err := client.KV().Get("agentcore/test", nil); err != nil {
		t.Skipf("consul not reachable: %v", err)
	}

	key := "agentcore/test/config"
	_, err = client.KV().Put(&api.KVPair{Key: key, Value: []byte("name: consul-test\n")}, nil)
	if err != nil {
		t.Fatalf("put config: %v", err)
	}
	defer client.KV().Delete(key, nil)

	p, err := NewConsulProvider("", key, nil)
	if err != nil {
		t.Fatalf("new consul provider: %v", err)
	}
	data, err := p.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(data) != "name: consul-test\n" {
		t.Fatalf("unexpected config content: %q", data)
	}
}
