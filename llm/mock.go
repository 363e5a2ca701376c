// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockClient is a mock LLM client for testing.
//
// Thread Safety:
//
//	MockClient is safe for concurrent use.
type MockClient struct {
	mu sync.RWMutex

	// model is the model name.
	model string

	// responses are queued responses to return.
	responses []string

	// defaultResponse is returned when no queued responses remain.
	defaultResponse string

	// calls records all calls made to Generate and Chat.
	calls []GenerateCall

	// responseFunc allows dynamic response generation.
	responseFunc func(prompt string) (string, error)

	// delay adds artificial latency to responses.
	delay time.Duration

	// errorToReturn causes Generate and Chat to return this error.
	errorToReturn error

	// available is what IsAvailable reports.
	available bool

	// models is what ListModels returns.
	models []string
}

// GenerateCall records a call to Generate or Chat.
type GenerateCall struct {
	Prompt    string
	Params    GenerationParams
	Timestamp time.Time
}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{
		model:           "mock-model",
		defaultResponse: "Mock response",
		calls:           make([]GenerateCall, 0),
		available:       true,
		models:          []string{"mock-model"},
	}
}

// WithModel sets the model name.
func (c *MockClient) WithModel(model string) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
	return c
}

// WithDelay adds artificial latency.
func (c *MockClient) WithDelay(d time.Duration) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delay = d
	return c
}

// WithError configures the client to return an error.
func (c *MockClient) WithError(err error) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorToReturn = err
	return c
}

// WithAvailable sets what IsAvailable reports.
func (c *MockClient) WithAvailable(available bool) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.available = available
	return c
}

// WithModels sets what ListModels returns.
func (c *MockClient) WithModels(models ...string) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = models
	return c
}

// WithResponseFunc sets a dynamic response function.
func (c *MockClient) WithResponseFunc(f func(prompt string) (string, error)) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responseFunc = f
	return c
}

// QueueResponse adds a response to the queue.
func (c *MockClient) QueueResponse(response string) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, response)
	return c
}

// SetDefaultResponse sets the response to return when the queue is empty.
func (c *MockClient) SetDefaultResponse(response string) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultResponse = response
	return c
}

// Generate implements the Client interface.
func (c *MockClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return c.respond(ctx, prompt, params)
}

// Chat implements the Client interface. The last message's content is
// recorded as the prompt.
func (c *MockClient) Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error) {
	prompt := ""
	if len(messages) > 0 {
		prompt = messages[len(messages)-1].Content
	}
	return c.respond(ctx, prompt, params)
}

func (c *MockClient) respond(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, GenerateCall{
		Prompt:    prompt,
		Params:    params,
		Timestamp: time.Now(),
	})

	if c.delay > 0 {
		time.Sleep(c.delay)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if c.errorToReturn != nil {
		return "", c.errorToReturn
	}

	if c.responseFunc != nil {
		return c.responseFunc(prompt)
	}

	if len(c.responses) > 0 {
		response := c.responses[0]
		c.responses = c.responses[1:]
		return response, nil
	}

	return c.defaultResponse, nil
}

// ListModels implements the Client interface.
func (c *MockClient) ListModels(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.errorToReturn != nil {
		return nil, c.errorToReturn
	}
	models := make([]string, len(c.models))
	copy(models, c.models)
	return models, nil
}

// IsAvailable implements the Client interface.
func (c *MockClient) IsAvailable(ctx context.Context) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available
}

// Model returns the model name.
func (c *MockClient) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// GetCalls returns all recorded calls.
func (c *MockClient) GetCalls() []GenerateCall {
	c.mu.RLock()
	defer c.mu.RUnlock()

	calls := make([]GenerateCall, len(c.calls))
	copy(calls, c.calls)
	return calls
}

// CallCount returns the number of calls made.
func (c *MockClient) CallCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.calls)
}

// LastPrompt returns the most recent prompt, or "" if no calls were made.
func (c *MockClient) LastPrompt() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.calls) == 0 {
		return ""
	}
	return c.calls[len(c.calls)-1].Prompt
}

// Reset clears all state.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.responses = nil
	c.calls = make([]GenerateCall, 0)
	c.errorToReturn = nil
	c.responseFunc = nil
	c.delay = 0
	c.available = true
}

// Verify ensures all queued responses were consumed.
func (c *MockClient) Verify() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.responses) > 0 {
		return fmt.Errorf("mock: %d queued responses not consumed", len(c.responses))
	}
	return nil
}

var _ Client = (*MockClient)(nil)
