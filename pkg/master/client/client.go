// Package client is the Go client for the Master's gRPC service. Workers
// and the scheduler use it exclusively; it wraps each of the five RPCs
// and retries Unavailable (the status the Master returns while
// RECOVERING) with backoff. Calls run under the caller's context; the
// client sets no deadline of its own.
package client

import (
	"context"
	"time"

	"github.com/ccoveille/go-safecast/v2"
	"github.com/cenkalti/backoff/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pinball-run/pinball/pkg/master"
	"github.com/pinball-run/pinball/pkg/proto"
	"github.com/pinball-run/pinball/pkg/token"
)

// Client is a typed wrapper around proto.MasterClient operating on domain
// types (pkg/token.Token, pkg/master.NameQuery) instead of wire types.
type Client struct {
	rpc          proto.MasterClient
	RetryOptions []backoff.RetryOption
}

// New wraps an existing gRPC connection.
func New(cc grpc.ClientConnInterface) *Client {
	return &Client{rpc: proto.NewMasterClient(cc)}
}

func (c *Client) retryOptions() []backoff.RetryOption {
	if len(c.RetryOptions) > 0 {
		return c.RetryOptions
	}
	return []backoff.RetryOption{
		backoff.WithMaxElapsedTime(time.Minute),
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
	}
}

func retryable[T any](ctx context.Context, c *Client, op func() (T, error)) (T, error) {
	wrapped := func() (T, error) {
		v, err := op()
		if err != nil {
			if st, ok := status.FromError(err); ok && st.Code() == codes.Unavailable {
				return v, err
			}
			return v, backoff.Permanent(err)
		}
		return v, nil
	}
	return backoff.Retry(ctx, wrapped, c.retryOptions()...)
}

func (c *Client) Group(ctx context.Context, prefix, groupSuffix string) (map[string]int64, error) {
	resp, err := retryable(ctx, c, func() (*proto.GroupResponse, error) {
		return c.rpc.Group(ctx, &proto.GroupRequest{Prefix: prefix, GroupSuffix: groupSuffix})
	})
	if err != nil {
		return nil, translate(err)
	}
	return resp.GetCounts(), nil
}

func (c *Client) Query(ctx context.Context, queries []master.NameQuery) ([][]token.Token, error) {
	req := &proto.QueryRequest{}
	for _, q := range queries {
		mt, err := safecast.Convert[int32](q.MaxTokens)
		if err != nil {
			return nil, token.NewError(token.CodeInputError, "maxTokens out of range: %d", q.MaxTokens)
		}
		req.Queries = append(req.Queries, &proto.NameQuery{NamePrefix: q.NamePrefix, MaxTokens: mt})
	}
	resp, err := retryable(ctx, c, func() (*proto.QueryResponse, error) {
		return c.rpc.Query(ctx, req)
	})
	if err != nil {
		return nil, translate(err)
	}
	out := make([][]token.Token, 0, len(resp.GetResults()))
	for _, r := range resp.GetResults() {
		out = append(out, proto.ToTokens(r.GetTokens()))
	}
	return out, nil
}

func (c *Client) Modify(ctx context.Context, updates, deletes []token.Token) ([]token.Token, error) {
	req := &proto.ModifyRequest{Updates: proto.FromTokens(updates), Deletes: proto.FromTokens(deletes)}
	resp, err := retryable(ctx, c, func() (*proto.ModifyResponse, error) {
		return c.rpc.Modify(ctx, req)
	})
	if err != nil {
		return nil, translate(err)
	}
	return proto.ToTokens(resp.GetUpdates()), nil
}

func (c *Client) QueryAndOwn(ctx context.Context, owner string, expirationTime int64, query master.NameQuery) ([]token.Token, error) {
	mt, err := safecast.Convert[int32](query.MaxTokens)
	if err != nil {
		return nil, token.NewError(token.CodeInputError, "maxTokens out of range: %d", query.MaxTokens)
	}
	req := &proto.QueryAndOwnRequest{
		Owner:          owner,
		ExpirationTime: expirationTime,
		Query:          &proto.NameQuery{NamePrefix: query.NamePrefix, MaxTokens: mt},
	}
	resp, err := retryable(ctx, c, func() (*proto.QueryAndOwnResponse, error) {
		return c.rpc.QueryAndOwn(ctx, req)
	})
	if err != nil {
		return nil, translate(err)
	}
	return proto.ToTokens(resp.GetTokens()), nil
}

func (c *Client) Archive(ctx context.Context, tokens []token.Token) error {
	req := &proto.ArchiveRequest{Tokens: proto.FromTokens(tokens)}
	_, err := retryable(ctx, c, func() (*proto.ArchiveResponse, error) {
		return c.rpc.Archive(ctx, req)
	})
	return translate(err)
}

// translate maps a gRPC status error back into a *token.Error so callers
// on either side of the wire see the same taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Aborted:
		return token.NewError(token.CodeVersionConflict, "%s", st.Message())
	case codes.NotFound:
		return token.NewError(token.CodeNotFound, "%s", st.Message())
	case codes.InvalidArgument:
		return token.NewError(token.CodeInputError, "%s", st.Message())
	case codes.Unavailable:
		return master.ErrNotReady
	default:
		return token.NewError(token.CodeUnknown, "%s", st.Message())
	}
}
