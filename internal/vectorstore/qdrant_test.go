package vectorstore

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

func TestValidateCollectionName(t *testing.T) {
	tests := []struct {
		input     string
		wantError bool
	}{
		{input: "ragnchat", wantError: false},
		{input: "ragnchat_vectors_2", wantError: false},
		{input: "", wantError: true},
		{input: "Ragnchat", wantError: true},
		{input: "../etc", wantError: true},
		{input: "has space", wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateCollectionName(tt.input)
			if tt.wantError {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQdrantConfig_Defaults(t *testing.T) {
	var cfg QdrantConfig
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6334, cfg.Port)
	assert.Equal(t, uint64(1536), cfg.VectorSize)

	cfg.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestPointID_Deterministic(t *testing.T) {
	a := pointID("o/r/main/README.md")
	assert.Equal(t, a, pointID("o/r/main/README.md"))
	assert.NotEqual(t, a, pointID("o/r/dev/README.md"))
	assert.Len(t, a, 36)
}

func TestToPointAndBack(t *testing.T) {
	rec := Record{
		ID:       "o/r/main/README.md",
		Values:   []float32{0.1, 0.2},
		Metadata: map[string]string{"file_name": "README.md", ContentKey: "hello"},
	}
	p := toPoint("o/r/main", rec)
	assert.Equal(t, pointID(rec.ID), p.GetId().GetUuid())
	assert.Equal(t, "o/r/main", p.GetPayload()[qdrantNamespaceKey].GetStringValue())

	scored := &qdrant.ScoredPoint{Id: p.GetId(), Payload: p.GetPayload(), Score: 0.9}
	m := fromScoredPoint(scored)
	assert.Equal(t, rec.ID, m.ID)
	assert.Equal(t, float32(0.9), m.Score)
	assert.Equal(t, rec.Metadata, m.Metadata, "reserved keys are stripped")
}

func TestGRPCRemoteError(t *testing.T) {
	tests := []struct {
		code codes.Code
		want int
	}{
		{codes.NotFound, http.StatusNotFound},
		{codes.Unavailable, http.StatusServiceUnavailable},
		{codes.InvalidArgument, http.StatusBadRequest},
		{codes.Unauthenticated, http.StatusUnauthorized},
		{codes.DeadlineExceeded, 0},
		{codes.Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			err := grpcRemoteError(status.Error(tt.code, "boom"))
			var rerr *v1.RemoteAPIError
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, "qdrant", rerr.Service)
			assert.Equal(t, tt.want, rerr.StatusCode)
		})
	}

	var rerr *v1.RemoteAPIError
	require.ErrorAs(t, grpcRemoteError(errors.New("plain")), &rerr)
	assert.Equal(t, 0, rerr.StatusCode)
	assert.NoError(t, grpcRemoteError(nil))
}


// TestQdrantStore_Integration runs against a live server when
// RAGNCHAT_TEST_QDRANT_HOST is set.
func TestQdrantStore_Integration(t *testing.T) {
	host := os.Getenv("RAGNCHAT_TEST_QDRANT_HOST")
	if host == "" {
		t.Skip("RAGNCHAT_TEST_QDRANT_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("RAGNCHAT_TEST_QDRANT_PORT"))

	ctx := context.Background()
	s, err := NewQdrantStore(ctx, QdrantConfig{Host: host, Port: port, CollectionName: "ragnchat_test", VectorSize: 2}, nil)
	require.NoError(t, err)
	defer s.Close()

	g := NewGateway(s)
	ns := "it/qdrant/main"
	_ = g.DeleteNamespace(ctx, ns)

	require.NoError(t, g.Upsert(ctx, ns, []Record{
		{ID: ns + "/a.md", Values: []float32{1, 0}, Metadata: map[string]string{ContentKey: "a"}},
		{ID: ns + "/b.md", Values: []float32{0, 1}, Metadata: map[string]string{ContentKey: "b"}},
	}))

	exists, err := g.NamespaceExists(ctx, ns)
	require.NoError(t, err)
	assert.True(t, exists)

	matches, err := g.Query(ctx, ns, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, ns+"/a.md", matches[0].ID)

	require.NoError(t, g.DeleteNamespace(ctx, ns))
}
