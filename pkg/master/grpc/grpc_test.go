package grpc

import (
	"context"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pinball-run/pinball/pkg/master"
	"github.com/pinball-run/pinball/pkg/proto"
	"github.com/pinball-run/pinball/pkg/token"
)

type fakeMaster struct {
	groupFn func(ctx context.Context, prefix, suffix string) (map[string]int64, error)
	err     error
}

func (f *fakeMaster) Group(ctx context.Context, prefix, suffix string) (map[string]int64, error) {
	if f.groupFn != nil {
		return f.groupFn(ctx, prefix, suffix)
	}
	return nil, f.err
}
func (f *fakeMaster) Query(context.Context, []master.NameQuery) ([][]token.Token, error) { return nil, f.err }
func (f *fakeMaster) Modify(context.Context, []token.Token, []token.Token) ([]token.Token, error) {
	return nil, f.err
}
func (f *fakeMaster) QueryAndOwn(context.Context, string, int64, master.NameQuery) ([]token.Token, error) {
	return nil, f.err
}
func (f *fakeMaster) Archive(context.Context, []token.Token) error { return f.err }

func TestGroupTranslatesSuccess(t *testing.T) {
	h := &Handler{Master: &fakeMaster{groupFn: func(context.Context, string, string) (map[string]int64, error) {
		return map[string]int64{"a/": 2}, nil
	}}}
	resp, err := h.Group(context.Background(), &proto.GroupRequest{Prefix: "/x/"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.GetCounts()["a/"])
}

func TestModifyTranslatesVersionConflictToAborted(t *testing.T) {
	h := &Handler{Master: &fakeMaster{err: token.NewError(token.CodeVersionConflict, "boom")}}
	_, err := h.Modify(context.Background(), &proto.ModifyRequest{})
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Aborted, st.Code())
}

func TestArchiveTranslatesNotFound(t *testing.T) {
	h := &Handler{Master: &fakeMaster{err: token.NewError(token.CodeNotFound, "missing")}}
	_, err := h.Archive(context.Background(), &proto.ArchiveRequest{})
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.NotFound, st.Code())
}

func TestQueryAndOwnTranslatesNotReadyToUnavailable(t *testing.T) {
	h := &Handler{
		Master: &fakeMaster{err: master.ErrNotReady},
		RetryOptions: []backoff.RetryOption{
			backoff.WithMaxElapsedTime(0),
			backoff.WithMaxTries(1),
		},
	}
	_, err := h.QueryAndOwn(context.Background(), &proto.QueryAndOwnRequest{})
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Unavailable, st.Code())
}
