package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragnchat/internal/chat"
	"github.com/fyrsmithlabs/ragnchat/internal/config"
	"github.com/fyrsmithlabs/ragnchat/internal/fetcher"
	"github.com/fyrsmithlabs/ragnchat/internal/vectorstore"
)

func TestRegistryAccessors(t *testing.T) {
	reg := NewRegistry(Options{})
	assert.Nil(t, reg.Repository())
	assert.Nil(t, reg.VectorStore())
	assert.Nil(t, reg.Chat())

	gw := vectorstore.NewGateway(nil)
	svc := chat.NewService(nil, nil, nil, nil)
	reg = NewRegistry(Options{VectorStore: gw, Chat: svc})
	assert.Same(t, gw, reg.VectorStore())
	assert.Same(t, svc, reg.Chat())
}

func TestNewFetcher_Mode(t *testing.T) {
	cfg := config.Default()

	f, err := NewFetcher(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &fetcher.ContentsFetcher{}, f)

	cfg.GitHub.Mode = "clone"
	f, err = NewFetcher(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &fetcher.CloneFetcher{}, f)

	cfg.GitHub.Mode = "ftp"
	_, err = NewFetcher(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestOpen_Chromem(t *testing.T) {
	cfg := config.Default()
	cfg.OpenAI.APIKey = "sk-test"
	cfg.VectorStore.Provider = "chromem"
	cfg.VectorStore.ChromemPath = vectorstore.MemoryPath

	set, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer set.Close()

	require.NotNil(t, set.Repository())
	require.NotNil(t, set.Chat())

	namespaces, err := set.VectorStore().ListNamespaces(context.Background())
	require.NoError(t, err)
	assert.Empty(t, namespaces)
	assert.NoError(t, set.VectorStore().Health(context.Background()))
}

func TestOpen_MissingKey(t *testing.T) {
	cfg := config.Default()
	cfg.VectorStore.Provider = "chromem"
	cfg.VectorStore.ChromemPath = vectorstore.MemoryPath

	_, err := Open(context.Background(), cfg, nil)
	assert.Error(t, err)
}
