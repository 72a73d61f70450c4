/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package bitwarden

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// scriptedResponse is the canned result of one bw invocation.
type scriptedResponse struct {
	Stdout string
	Stderr string
	Err    error
}

// scriptedExecutor answers bw invocations by longest matching argument prefix
// and records every call.
type scriptedExecutor struct {
	mu        sync.Mutex
	responses map[string][]scriptedResponse
	calls     []string
}

func newScriptedExecutor() *scriptedExecutor {
	return &scriptedExecutor{responses: map[string][]scriptedResponse{}}
}

// on queues responses for commands starting with prefix. The last response
// repeats once the queue is drained.
func (s *scriptedExecutor) on(prefix string, resp ...scriptedResponse) *scriptedExecutor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[prefix] = append(s.responses[prefix], resp...)
	return s
}

func (s *scriptedExecutor) Execute(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.Join(append([]string{name}, args...), " ")
	s.calls = append(s.calls, key)

	best := ""
	for prefix := range s.responses {
		if strings.HasPrefix(key, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return nil, nil, fmt.Errorf("no scripted response for %q", key)
	}
	queue := s.responses[best]
	resp := queue[0]
	if len(queue) > 1 {
		s.responses[best] = queue[1:]
	}
	return []byte(resp.Stdout), []byte(resp.Stderr), resp.Err
}

func (s *scriptedExecutor) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}
