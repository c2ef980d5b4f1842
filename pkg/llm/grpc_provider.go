package llm

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
)

const (
	serviceName        = "agentcore.llm.LLMService"
	completeMethodPath = "/" + serviceName + "/Complete"
	streamMethodPath   = "/" + serviceName + "/Stream"
)

var llmStreamDesc = grpc.StreamDesc{
	StreamName:    "Stream",
	ServerStreams: true,
}

// GRPCProvider is the reference Provider implementation: it talks to an
// out-of-process LLM gateway over gRPC using the JSON codec registered in
// grpc_codec.go, since no protoc-generated client stub exists in this
// build. grpc.ClientConn.Invoke/NewStream are called directly against a
// hand-authored method path rather than through generated methods.
type GRPCProvider struct {
	name string
	conn *grpc.ClientConn
}

// NewGRPCProvider dials addr and returns a Provider named name (used in
// FallbackEntry logging and metrics).
func NewGRPCProvider(name, addr string) (*GRPCProvider, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial LLM service at %q: %w", addr, err)
	}
	return &GRPCProvider{name: name, conn: conn}, nil
}

func (p *GRPCProvider) Name() string { return p.name }

// Close releases the underlying gRPC connection.
func (p *GRPCProvider) Close() error { return p.conn.Close() }

func (p *GRPCProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	wireReq := toWireRequest(req)
	var wireResp completionResponseWire

	if err := p.conn.Invoke(ctx, completeMethodPath, &wireReq, &wireResp, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return CompletionResponse{}, fmt.Errorf("LLM Complete RPC: %w", err)
	}

	return CompletionResponse{
		Content:   wireResp.Content,
		ToolCalls: fromWireToolCalls(wireResp.ToolCalls),
		Usage:     fromWireUsage(wireResp.Usage),
	}, nil
}

func (p *GRPCProvider) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	wireReq := toWireRequest(req)

	cs, err := p.conn.NewStream(ctx, &llmStreamDesc, streamMethodPath, grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		return nil, fmt.Errorf("LLM Stream RPC: %w", err)
	}
	if err := cs.SendMsg(&wireReq); err != nil {
		return nil, fmt.Errorf("send stream request: %w", err)
	}
	if err := cs.CloseSend(); err != nil {
		return nil, fmt.Errorf("close stream send: %w", err)
	}

	out := make(chan StreamEvent, 16)
	go func() {
		defer close(out)
		for {
			var chunk streamChunkWire
			err := cs.RecvMsg(&chunk)
			if err == io.EOF {
				return
			}
			if err != nil {
				out <- StreamEvent{Err: fmt.Errorf("recv stream chunk: %w", err)}
				return
			}
			if chunk.Error != "" {
				out <- StreamEvent{Err: fmt.Errorf("%s", chunk.Error)}
				return
			}
			out <- StreamEvent{
				Delta:     chunk.Delta,
				ToolCalls: fromWireToolCalls(chunk.ToolCalls),
				Done:      chunk.Done,
				Usage:     fromWireUsage(chunk.Usage),
			}
			if chunk.Done {
				return
			}
		}
	}()
	return out, nil
}

func toWireRequest(req CompletionRequest) completionRequestWire {
	messages := make([]wireMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = wireMessage{Role: toWireRole(m.Role), Content: m.Text}
	}
	tools := make([]wireToolSpec, len(req.Tools))
	for i, t := range req.Tools {
		tools[i] = wireToolSpec{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema}
	}
	return completionRequestWire{
		Model:       req.Model,
		Messages:    messages,
		Tools:       tools,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}

func toWireRole(r corekit.Role) wireRole {
	switch r {
	case corekit.RoleSystem:
		return wireRoleSystem
	case corekit.RoleAssistant:
		return wireRoleAssistant
	case corekit.RoleToolResponse:
		return wireRoleTool
	default:
		return wireRoleUser
	}
}

func fromWireToolCalls(calls []wireToolCall) []corekit.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]corekit.ToolCall, len(calls))
	for i, c := range calls {
		out[i] = corekit.ToolCall{Name: c.Name, Arguments: c.Arguments, CallIndex: i}
	}
	return out
}

func fromWireUsage(u wireUsage) Usage {
	return Usage{PromptTokens: u.PromptTokens, CachedTokens: u.CachedTokens, CompletionTokens: u.CompletionTokens}
}
