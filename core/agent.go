package orchestration

import (
	"context"

	"github.com/voiceos-labs/voiceos-core/core/agents"
)

// agentConnection wraps the configured remote agent client.
type agentConnection struct {
	client AgentClient
}

func (a *agentConnection) set(client AgentClient) {
	if a != nil {
		a.client = client
	}
}

func (a *agentConnection) isConfigured() bool {
	return a != nil && a.client != nil
}

func (a *agentConnection) RunExchange(ctx context.Context, history []agents.Turn, opts ...agents.ExchangeOption) ([]agents.Turn, error) {
	if !a.isConfigured() {
		return history, nil
	}

	return a.client.RunExchange(ctx, history, opts...)
}
