package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/tanpawarit/Chative-Agent-Router/agent/nodes/orchestrator"
)

func (o *Orchestrator) compileProcessMessageGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("preprocess_media",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.PreprocessMedia(ctx, in, o.deps.Preprocessor, o.deps.Fetcher, o.cfg.PreprocessTimeout)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node preprocess_media: %w", err)
	}

	if err := graph.AddLambdaNode("fetch_context",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.FetchContext(ctx, in, o.deps.Context, o.cfg.ContextTimeout)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node fetch_context: %w", err)
	}

	if err := graph.AddLambdaNode("route_turn",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RouteTurn(ctx, in, o.deps.Router)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node route_turn: %w", err)
	}

	if err := graph.AddLambdaNode("respond_directly",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RespondDirectly(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node respond_directly: %w", err)
	}

	if err := graph.AddLambdaNode("dispatch_agent",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DispatchAgent(ctx, in, o.deps.Agents, o.cfg.AgentTimeout)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dispatch_agent: %w", err)
	}

	if err := graph.AddLambdaNode("record_telemetry",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RecordTelemetry(ctx, in, o.deps.Telemetry, o.deps.Pricing, o.cfg.TelemetryTimeout)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node record_telemetry: %w", err)
	}

	if err := graph.AddLambdaNode("apply_ops",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ApplyOps(ctx, in, o.deps.Executor, o.cfg.OpsTimeout)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node apply_ops: %w", err)
	}

	if err := graph.AddLambdaNode("persist_turn",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.PersistTurn(ctx, in, o.deps.Turns, o.cfg.PersistTimeout)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node persist_turn: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("route state is nil")
			}
			if in.Decision.IsRespond() {
				return "respond_directly", nil
			}
			return "dispatch_agent", nil
		},
		map[string]bool{
			"respond_directly": true,
			"dispatch_agent":   true,
		},
	)
	if err := graph.AddBranch("route_turn", branch); err != nil {
		return nil, fmt.Errorf("add route branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "preprocess_media"},
		{"preprocess_media", "fetch_context"},
		{"fetch_context", "route_turn"},
		{"respond_directly", "persist_turn"},
		{"dispatch_agent", "record_telemetry"},
		{"record_telemetry", "apply_ops"},
		{"apply_ops", "persist_turn"},
		{"persist_turn", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.process_message"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
