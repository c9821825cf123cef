package llm

import (
	"context"
	"errors"
	"fmt"
)

// Message is the role-separated prompt every adapter accepts.
type Message struct {
	System string
	User   string
}

// Completion is the raw text returned by a backend.
type Completion struct {
	Text          string
	Backend       BackendKind
	Model         string
	PhysicalModel string
	Endpoint      string
}

// Adapter sends one prompt to one backend. Adapters do not retry.
type Adapter interface {
	Send(ctx context.Context, target Target, msg Message) (Completion, error)
}

// Router dispatches a Target to the adapter for its kind and wire protocol.
type Router struct {
	HostedA Adapter
	HostedB Adapter
	Native  Adapter
	Compat  Adapter
}

func (r *Router) Send(ctx context.Context, target Target, msg Message) (Completion, error) {
	adapter, err := r.pick(target)
	if err != nil {
		return Completion{}, err
	}
	return adapter.Send(ctx, target, msg)
}

func (r *Router) pick(target Target) (Adapter, error) {
	var a Adapter
	switch target.Kind {
	case HostedA:
		a = r.HostedA
	case HostedB:
		a = r.HostedB
	case SelfHosted:
		if target.Endpoint == nil {
			return nil, ProviderError(target.Provider(), "self-hosted target has no endpoint", nil)
		}
		switch target.Endpoint.Protocol {
		case NativeGenerate:
			a = r.Native
		case OpenAIChat:
			a = r.Compat
		}
	}
	if a == nil {
		return nil, ProviderError(target.Provider(), fmt.Sprintf("no adapter registered for %s", target.Kind), nil)
	}
	return a, nil
}

// classifyTransport turns a transport error into Timeout or ProviderError.
func classifyTransport(ctx context.Context, provider string, err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Timeout(provider, err)
	}
	return ProviderError(provider, err.Error(), err)
}
