// Copyright (c) 2026 Optica. All rights reserved.

package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optica-app/optica/internal/audit"
	"github.com/optica-app/optica/internal/platform/apperr"
	"github.com/optica-app/optica/pkg/pagination"
)

type fakeAuditStore struct {
	events []audit.Event
}

func (store *fakeAuditStore) Insert(_ context.Context, event *audit.Event) error {
	event.ID = int64(len(store.events) + 1)
	store.events = append(store.events, *event)
	return nil
}

func (store *fakeAuditStore) FindByID(_ context.Context, _ int64) (*audit.Event, error) {
	return nil, errors.New("not implemented")
}

func (store *fakeAuditStore) List(_ context.Context, _ audit.Filter, _ pagination.Params) ([]audit.Event, int, error) {
	return store.events, len(store.events), nil
}

func (store *fakeAuditStore) Summarize(_ context.Context, _, _ *time.Time) (*audit.Summary, error) {
	return &audit.Summary{Total: len(store.events)}, nil
}

func newTestService() (*Service, *fakeAuditStore) {
	store := &fakeAuditStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(audit.NewRecorder(store, logger)), store
}

func TestList_PaginatesInIDOrder(t *testing.T) {
	service, store := newTestService()
	actor := &audit.Actor{ID: 7, Username: "margaret", Role: "staff"}

	products, total, err := service.List(context.Background(), actor, pagination.Params{Page: 1, Limit: 3}, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, len(demoProducts), total)
	require.Len(t, products, 3)
	assert.Equal(t, int64(1), products[0].ID)
	assert.Equal(t, int64(3), products[2].ID)

	require.Len(t, store.events, 1)
	assert.Equal(t, audit.OpProductView, store.events[0].Operation)
}

func TestList_PageBeyondEnd(t *testing.T) {
	service, _ := newTestService()

	products, total, err := service.List(context.Background(), nil, pagination.Params{Page: 99, Limit: 10}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, len(demoProducts), total)
	assert.Empty(t, products)
}

func TestGet_RecordsProductView(t *testing.T) {
	service, store := newTestService()
	actor := &audit.Actor{ID: 7, Username: "margaret", Role: "staff"}

	product, err := service.Get(context.Background(), actor, 4, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "Clubmaster Optics", product.Name)

	require.Len(t, store.events, 1)
	event := store.events[0]
	assert.Equal(t, audit.OpProductView, event.Operation)
	require.NotNil(t, event.TargetID)
	assert.Equal(t, int64(4), *event.TargetID)
}

func TestGet_UnknownProduct(t *testing.T) {
	service, store := newTestService()

	_, err := service.Get(context.Background(), nil, 404, "10.0.0.1")

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	assert.Empty(t, store.events)
}
