package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/okian/ghostslot/internal/adapters/http/api"
	service "github.com/okian/ghostslot/internal/app"
	"github.com/okian/ghostslot/internal/auth"
	"github.com/okian/ghostslot/internal/client"
	"github.com/okian/ghostslot/internal/domain/model"
	"github.com/okian/ghostslot/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newServer(t *testing.T, opts ...api.Option) string {
	t.Helper()
	svc := service.New(service.WithCohorts(map[int]int{1: 2}))
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(svc.Stop)

	server := api.NewServer(svc, opts...)
	mux := http.NewServeMux()
	server.Register(mux)
	ts := httptest.NewServer(server.Handler(mux))
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestClientLifecycle(t *testing.T) {
	ctx := context.Background()
	base := newServer(t)
	alice := client.New(base+"/", client.WithRequester("alice"))

	slot, err := alice.Reserve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, model.StatusReserved, slot.Status)
	require.NotZero(t, slot.ExpiresAt)

	state, err := alice.Query(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, state.UserSlot)
	require.Equal(t, slot.ID, *state.UserSlot)
	require.Equal(t, 1, state.Reserved)

	_, err = alice.As("bob").Release(ctx, 1, slot.ID)
	require.ErrorIs(t, err, model.ErrNotOwner)

	submitted, err := alice.Submit(ctx, 1, slot.ID, "sk-1")
	require.NoError(t, err)
	require.Equal(t, model.StatusSubmitted, submitted.Status)
	require.Equal(t, "sk-1", submitted.SkillsetID)

	_, err = alice.Release(ctx, 1, slot.ID)
	require.ErrorIs(t, err, model.ErrInvalidState)
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	base := newServer(t)
	c := client.New(base, client.WithRequester("carol"))

	t.Run("pool exhausted", func(t *testing.T) {
		_, err := c.As("a").Reserve(ctx, 1)
		require.NoError(t, err)
		_, err = c.As("b").Reserve(ctx, 1)
		require.NoError(t, err)

		_, err = c.Reserve(ctx, 1)
		require.ErrorIs(t, err, model.ErrPoolExhausted)

		var apiErr *client.APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, http.StatusConflict, apiErr.Status)
		require.Equal(t, "pool_exhausted", apiErr.Code)
		require.False(t, apiErr.Retryable())
	})

	t.Run("unknown cohort", func(t *testing.T) {
		_, err := c.Query(ctx, 99)
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("anonymous reserve", func(t *testing.T) {
		_, err := client.New(base).Reserve(ctx, 1)
		var apiErr *client.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	})

	t.Run("unexpected body", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusBadGateway)
		}))
		defer ts.Close()

		_, err := client.New(ts.URL).Cohorts(ctx)
		require.ErrorIs(t, err, client.ErrUnexpectedStatus)
		require.Contains(t, err.Error(), "502")
	})
}

func TestClientCohorts(t *testing.T) {
	ctx := context.Background()
	c := client.New(newServer(t), client.WithRequester("ops"))

	created, err := c.CreateCohort(ctx, 4, 3)
	require.NoError(t, err)
	require.Equal(t, 4, created.Cohort)
	require.Len(t, created.Slots, 3)

	_, err = c.CreateCohort(ctx, 4, 3)
	require.ErrorIs(t, err, model.ErrCohortExists)

	cohorts, err := c.Cohorts(ctx)
	require.NoError(t, err)
	require.Len(t, cohorts, 2)
	require.Equal(t, 1, cohorts[0].Cohort)
	require.Equal(t, 4, cohorts[1].Cohort)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, true, stats["started"])
}

func TestClientToken(t *testing.T) {
	ctx := context.Background()
	base := newServer(t, api.WithAuthenticator(auth.NewTokenAuthenticator(map[string]string{"t0k": "dave"})))

	_, err := client.New(base, client.WithToken("t0k")).Reserve(ctx, 1)
	require.NoError(t, err)

	_, err = client.New(base, client.WithToken("wrong")).Reserve(ctx, 1)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "unauthenticated", apiErr.Code)
}

func TestClientContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.New(ts.URL).Query(ctx, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
