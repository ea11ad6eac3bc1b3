package llm

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
)

// localInvoker is the narrow surface this provider needs from a gRPC
// connection, so tests can substitute a fake without a real server.
type localInvoker interface {
	Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error
}

// LocalProvider invokes a model served by an in-cluster runtime over gRPC.
// The runtime's service contract varies by deployment, so requests and
// responses are exchanged as schemaless structpb documents rather than
// generated message types.
type LocalProvider struct {
	conn   localInvoker
	method string
}

// NewLocalProvider dials addr and returns a provider that calls method for
// every invocation (e.g. "/gateway.local.v1.ModelRuntime/Generate").
func NewLocalProvider(addr, method string) (*LocalProvider, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeProviderUnavailable, "local: failed to dial model runtime", err)
	}
	return &LocalProvider{conn: conn, method: method}, nil
}

// Invoke implements Provider.
func (p *LocalProvider) Invoke(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	args, err := structpb.NewStruct(map[string]any{
		"model":       req.ModelCode,
		"messages":    messagesToStructValue(req.Messages),
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
	})
	if err != nil {
		return Response{}, apperr.Wrap(apperr.CodeProviderRefused, "local: failed to encode request", err)
	}

	reply := &structpb.Struct{}
	if err := p.conn.Invoke(ctx, p.method, args, reply); err != nil {
		return Response{}, classifyLocalError(err)
	}

	fields := reply.GetFields()
	content := fields["content"].GetStringValue()
	finishReason := fields["finish_reason"].GetStringValue()

	resp := Response{
		Content:          content,
		FinishReason:     finishReason,
		ProcessingTimeMs: elapsedMs(start),
	}
	if tokens := fields["tokens_used"].GetNumberValue(); tokens > 0 {
		resp.TokensUsed = int(tokens)
	} else {
		resp.TokensUsed = EstimateTokens(content)
		resp.TokensApproximate = true
	}
	return resp, nil
}

func messagesToStructValue(messages []Message) []any {
	out := make([]any, 0, len(messages))
	for _, m := range messages {
		out = append(out, map[string]any{
			"role":    string(m.Role),
			"content": m.Content,
		})
	}
	return out
}

// classifyLocalError maps gRPC status codes onto the shared provider error
// taxonomy (spec §7).
func classifyLocalError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return apperr.Wrap(apperr.CodeProviderUnavailable, "local: transport error", err)
	}
	switch st.Code() {
	case codes.ResourceExhausted:
		return apperr.Wrap(apperr.CodeProviderRateLimited, "local: rate limited", err)
	case codes.DeadlineExceeded:
		return apperr.Wrap(apperr.CodeProviderTimeout, "local: request timed out", err)
	case codes.InvalidArgument, codes.FailedPrecondition:
		return apperr.Wrap(apperr.CodeProviderRefused, "local: request refused", err)
	default:
		return apperr.Wrap(apperr.CodeProviderUnavailable, "local: runtime error", err)
	}
}
