package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil ports returns error", func(t *testing.T) {
		server, err := NewServer(nil)
		require.Error(t, err)
		assert.Nil(t, server)
	})

	t.Run("missing ingester returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingIngester)
	})

	t.Run("missing retriever returns error", func(t *testing.T) {
		_, err := NewServer(&Ports{Ingester: &mockIngester{}})
		assert.ErrorIs(t, err, ErrMissingRetriever)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Ingester: &mockIngester{}, Retriever: &mockRetriever{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.NotNil(t, server.Handler())
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("empty ports", func(t *testing.T) {
		assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingIngester)
	})

	t.Run("all ports", func(t *testing.T) {
		ports := &Ports{Ingester: &mockIngester{}, Retriever: &mockRetriever{}}
		assert.NoError(t, ports.Validate())
	})
}
