// Package grpc implements the Master's gRPC surface: it adapts
// pkg/master.Master's five atomic operations to the wire contract in
// pkg/proto, translating domain *token.Error values into gRPC status codes
// and recording a journal breadcrumb per request.
package grpc

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-logr/logr"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pinball-run/pinball/pkg/journal"
	"github.com/pinball-run/pinball/pkg/master"
	"github.com/pinball-run/pinball/pkg/proto"
	"github.com/pinball-run/pinball/pkg/token"
)

// Master is the subset of *master.Master the Handler depends on, so tests
// can substitute a fake.
type Master interface {
	Group(ctx context.Context, prefix, groupSuffix string) (map[string]int64, error)
	Query(ctx context.Context, queries []master.NameQuery) ([][]token.Token, error)
	Modify(ctx context.Context, updates, deletes []token.Token) ([]token.Token, error)
	QueryAndOwn(ctx context.Context, owner string, expirationTime int64, query master.NameQuery) ([]token.Token, error)
	Archive(ctx context.Context, tokens []token.Token) error
}

// Handler implements proto.MasterServer against a Master.
type Handler struct {
	Logger       logr.Logger
	Master       Master
	RetryOptions []backoff.RetryOption

	proto.UnimplementedMasterServer
}

func (h *Handler) retryOptions() []backoff.RetryOption {
	if len(h.RetryOptions) > 0 {
		return h.RetryOptions
	}
	return []backoff.RetryOption{
		backoff.WithMaxElapsedTime(30 * time.Second),
		backoff.WithBackOff(backoff.NewConstantBackOff(200 * time.Millisecond)),
	}
}

// retryOnNotReady wraps op so a RECOVERING Master is retried instead of
// immediately failing the RPC; op must itself translate domain errors to
// gRPC status errors so backoff.Retry can distinguish retryable
// Unavailable from terminal failures.
func retryOnNotReady[T any](ctx context.Context, h *Handler, op func() (T, error)) (T, error) {
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
	return backoff.Retry(ctx, wrapped, h.retryOptions()...)
}

func (h *Handler) Group(ctx context.Context, req *proto.GroupRequest) (*proto.GroupResponse, error) {
	return retryOnNotReady(ctx, h, func() (*proto.GroupResponse, error) {
		ctx = journal.New(ctx)
		defer func() {
			h.Logger.V(1).Info("Group journal", "journal", journal.Journal(ctx))
		}()
		counts, err := h.Master.Group(ctx, req.GetPrefix(), req.GetGroupSuffix())
		if err != nil {
			return nil, toStatus(err)
		}
		return &proto.GroupResponse{Counts: counts}, nil
	})
}

func (h *Handler) Query(ctx context.Context, req *proto.QueryRequest) (*proto.QueryResponse, error) {
	return retryOnNotReady(ctx, h, func() (*proto.QueryResponse, error) {
		ctx = journal.New(ctx)
		defer func() {
			h.Logger.V(1).Info("Query journal", "journal", journal.Journal(ctx))
		}()
		queries := make([]master.NameQuery, 0, len(req.GetQueries()))
		for _, q := range req.GetQueries() {
			queries = append(queries, master.NameQuery{NamePrefix: q.GetNamePrefix(), MaxTokens: int(q.GetMaxTokens())})
		}
		results, err := h.Master.Query(ctx, queries)
		if err != nil {
			return nil, toStatus(err)
		}
		resp := &proto.QueryResponse{}
		for _, r := range results {
			resp.Results = append(resp.Results, &proto.TokenList{Tokens: proto.FromTokens(r)})
		}
		return resp, nil
	})
}

func (h *Handler) Modify(ctx context.Context, req *proto.ModifyRequest) (*proto.ModifyResponse, error) {
	return retryOnNotReady(ctx, h, func() (*proto.ModifyResponse, error) {
		ctx = journal.New(ctx)
		defer func() {
			h.Logger.V(1).Info("Modify journal", "journal", journal.Journal(ctx))
		}()
		updated, err := h.Master.Modify(ctx, proto.ToTokens(req.GetUpdates()), proto.ToTokens(req.GetDeletes()))
		if err != nil {
			return nil, toStatus(err)
		}
		return &proto.ModifyResponse{Updates: proto.FromTokens(updated)}, nil
	})
}

func (h *Handler) QueryAndOwn(ctx context.Context, req *proto.QueryAndOwnRequest) (*proto.QueryAndOwnResponse, error) {
	return retryOnNotReady(ctx, h, func() (*proto.QueryAndOwnResponse, error) {
		ctx = journal.New(ctx)
		defer func() {
			h.Logger.V(1).Info("QueryAndOwn journal", "journal", journal.Journal(ctx))
		}()
		q := master.NameQuery{NamePrefix: req.GetQuery().GetNamePrefix(), MaxTokens: int(req.GetQuery().GetMaxTokens())}
		owned, err := h.Master.QueryAndOwn(ctx, req.GetOwner(), req.GetExpirationTime(), q)
		if err != nil {
			return nil, toStatus(err)
		}
		return &proto.QueryAndOwnResponse{Tokens: proto.FromTokens(owned)}, nil
	})
}

func (h *Handler) Archive(ctx context.Context, req *proto.ArchiveRequest) (*proto.ArchiveResponse, error) {
	return retryOnNotReady(ctx, h, func() (*proto.ArchiveResponse, error) {
		ctx = journal.New(ctx)
		defer func() {
			h.Logger.V(1).Info("Archive journal", "journal", journal.Journal(ctx))
		}()
		if err := h.Master.Archive(ctx, proto.ToTokens(req.GetTokens())); err != nil {
			return nil, toStatus(err)
		}
		return &proto.ArchiveResponse{}, nil
	})
}

// toStatus maps a domain error to a gRPC status error. ErrNotReady becomes
// Unavailable so clients (and our own retry wrapper) know to retry; every
// *token.Error becomes the matching status code; anything else is Internal.
func toStatus(err error) error {
	if err == master.ErrNotReady {
		return status.Error(codes.Unavailable, err.Error())
	}
	if e, ok := err.(*token.Error); ok {
		switch e.Code {
		case token.CodeVersionConflict:
			return status.Error(codes.Aborted, e.Error())
		case token.CodeNotFound:
			return status.Error(codes.NotFound, e.Error())
		case token.CodeInputError:
			return status.Error(codes.InvalidArgument, e.Error())
		default:
			return status.Error(codes.Unknown, e.Error())
		}
	}
	return status.Error(codes.Internal, err.Error())
}
