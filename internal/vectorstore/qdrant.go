package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fyrsmithlabs/ragnchat/internal/config"
	"github.com/fyrsmithlabs/ragnchat/internal/logging"
	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

// Payload keys reserved by QdrantStore.
const (
	qdrantNamespaceKey = "namespace"
	qdrantRecordIDKey  = "record_id"
)

// collectionNamePattern validates collection names.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// QdrantConfig holds configuration for Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string

	// Port is the Qdrant gRPC port (NOT HTTP REST port).
	// Default: 6334 (gRPC), not 6333 (HTTP)
	Port int

	// CollectionName holds every namespace.
	CollectionName string

	// VectorSize must match the embedder output dimension.
	VectorSize uint64

	APIKey config.Secret
	UseTLS bool

	// MaxNamespaces caps the facet listing.
	// Default: 10000
	MaxNamespaces uint64

	// MaxMessageSize is the maximum gRPC message size in bytes.
	// Default: 50MB
	MaxMessageSize int
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return ValidateCollectionName(c.CollectionName)
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = config.DefaultQdrantPort
	}
	if c.CollectionName == "" {
		c.CollectionName = config.DefaultQdrantCollection
	}
	if c.VectorSize == 0 {
		c.VectorSize = config.DefaultDimension
	}
	if c.MaxNamespaces == 0 {
		c.MaxNamespaces = 10000
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
}

// ValidateCollectionName validates a collection name.
// Pattern: ^[a-z0-9_]{1,64}$
func ValidateCollectionName(name string) error {
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match ^[a-z0-9_]{1,64}$, got %q", ErrInvalidConfig, name)
	}
	return nil
}

// QdrantStore keeps all namespaces in one collection. Each point carries
// its namespace in a keyword-indexed payload field, which backs filtering,
// deletion and the facet-based namespace listing.
type QdrantStore struct {
	client *qdrant.Client
	config QdrantConfig
	logger *logging.Logger
}

// NewQdrantStore connects to Qdrant and ensures the collection and its
// namespace index exist.
func NewQdrantStore(ctx context.Context, cfg QdrantConfig, logger *logging.Logger) (*QdrantStore, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey.Value(),
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
				grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &QdrantStore{client: client, config: cfg, logger: logger.Named("qdrant")}

	if !cfg.UseTLS {
		store.logger.Warn(ctx, "qdrant gRPC using plaintext (TLS disabled)")
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := store.Health(initCtx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	if err := store.ensureCollection(initCtx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return store, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.config.CollectionName)
	if err != nil {
		return grpcRemoteError(err)
	}
	if !exists {
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.config.CollectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     s.config.VectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("creating collection %s: %w", s.config.CollectionName, grpcRemoteError(err))
		}
		s.logger.Info(ctx, "created collection",
			zap.String("collection", s.config.CollectionName),
			zap.Uint64("vector_size", s.config.VectorSize))
	}

	// Idempotent on the server side.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.config.CollectionName,
		FieldName:      qdrantNamespaceKey,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("creating namespace index: %w", grpcRemoteError(err))
	}
	return nil
}

// Name implements Backend.
func (s *QdrantStore) Name() string { return "qdrant" }

// Health implements Backend.
func (s *QdrantStore) Health(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.Health")
	defer span.End()

	if _, err := s.client.HealthCheck(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return grpcRemoteError(err)
	}
	span.SetStatus(codes.Ok, "healthy")
	return nil
}

// Upsert implements Backend.
func (s *QdrantStore) Upsert(ctx context.Context, namespace string, records []Record) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.Upsert")
	defer span.End()
	span.SetAttributes(attribute.Int("point_count", len(records)))

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		points[i] = toPoint(namespace, r)
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.config.CollectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return grpcRemoteError(err)
	}
	return nil
}

// Namespaces implements Backend using a facet over the namespace index.
func (s *QdrantStore) Namespaces(ctx context.Context) ([]string, error) {
	hits, err := s.client.Facet(ctx, &qdrant.FacetCounts{
		CollectionName: s.config.CollectionName,
		Key:            qdrantNamespaceKey,
		Limit:          qdrant.PtrOf(s.config.MaxNamespaces),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return nil, grpcRemoteError(err)
	}

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.GetCount() == 0 {
			continue
		}
		out = append(out, h.GetValue().GetStringValue())
	}
	return out, nil
}

// DeleteNamespace implements Backend.
func (s *QdrantStore) DeleteNamespace(ctx context.Context, namespace string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.config.CollectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(namespaceFilter(namespace)),
	})
	if err != nil {
		return grpcRemoteError(err)
	}
	return nil
}

// Query implements Backend.
func (s *QdrantStore) Query(ctx context.Context, namespace string, vector []float32, k int) ([]Match, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.Query")
	defer span.End()

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.config.CollectionName,
		Query:          qdrant.NewQueryDense(vector),
		Filter:         namespaceFilter(namespace),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, grpcRemoteError(err)
	}

	matches := make([]Match, len(points))
	for i, p := range points {
		matches[i] = fromScoredPoint(p)
	}
	return matches, nil
}

// Close closes the Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// pointID maps a record id to a stable UUID, since Qdrant only accepts
// integers and UUIDs. The original id is kept in the payload.
func pointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID)).String()
}

func namespaceFilter(namespace string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatchKeyword(qdrantNamespaceKey, namespace)},
	}
}

func toPoint(namespace string, r Record) *qdrant.PointStruct {
	payload := make(map[string]*qdrant.Value, len(r.Metadata)+2)
	for k, v := range r.Metadata {
		payload[k] = qdrant.NewValueString(v)
	}
	payload[qdrantNamespaceKey] = qdrant.NewValueString(namespace)
	payload[qdrantRecordIDKey] = qdrant.NewValueString(r.ID)

	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(pointID(r.ID)),
		Vectors: qdrant.NewVectorsDense(r.Values),
		Payload: payload,
	}
}

func fromScoredPoint(p *qdrant.ScoredPoint) Match {
	meta := make(map[string]string, len(p.GetPayload()))
	var id string
	for k, v := range p.GetPayload() {
		switch k {
		case qdrantRecordIDKey:
			id = v.GetStringValue()
		case qdrantNamespaceKey:
		default:
			meta[k] = v.GetStringValue()
		}
	}
	if id == "" {
		id = p.GetId().GetUuid()
	}
	return Match{ID: id, Score: p.GetScore(), Metadata: meta}
}

// grpcRemoteError wraps a gRPC failure as a RemoteAPIError with the
// closest HTTP status.
func grpcRemoteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return v1.NewRemoteAPIError("qdrant", 0, err)
	}
	st, ok := status.FromError(err)
	if !ok {
		return v1.NewRemoteAPIError("qdrant", 0, err)
	}
	return v1.NewRemoteAPIError("qdrant", httpStatusFromGRPC(st.Code()), errors.New(st.Message()))
}

func httpStatusFromGRPC(code grpccodes.Code) int {
	switch code {
	case grpccodes.InvalidArgument, grpccodes.FailedPrecondition, grpccodes.OutOfRange:
		return http.StatusBadRequest
	case grpccodes.Unauthenticated:
		return http.StatusUnauthorized
	case grpccodes.PermissionDenied:
		return http.StatusForbidden
	case grpccodes.NotFound:
		return http.StatusNotFound
	case grpccodes.AlreadyExists, grpccodes.Aborted:
		return http.StatusConflict
	case grpccodes.ResourceExhausted:
		return http.StatusTooManyRequests
	case grpccodes.Unavailable:
		return http.StatusServiceUnavailable
	case grpccodes.DeadlineExceeded:
		return 0
	case grpccodes.Unimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
