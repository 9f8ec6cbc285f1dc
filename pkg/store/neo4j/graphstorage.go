package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/cropgraph/backend/pkg/store"

	neo4jv5 "github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/OFFIS-RIT/cropgraph/backend/pkg/store/neo4j")

var _ store.GraphStorage = (*GraphNeo4jStorage)(nil)

// GraphNeo4jStorage implements store.GraphStorage on a Neo4j database.
// Every operation opens its own session and closes it before returning, so
// the storage can be shared by sequential callers for the whole process
// lifetime. Close releases the driver.
type GraphNeo4jStorage struct {
	driver   neo4jv5.DriverWithContext
	database string
	timeout  time.Duration
}

// NewGraphNeo4jStorageParams configures the connection.
//
// ConnectTimeout bounds dialing and the connectivity check. Timeout bounds
// each individual operation, 0 disables it. MaxPoolSize defaults to the
// driver default.
type NewGraphNeo4jStorageParams struct {
	URI            string
	Username       string
	Password       string
	Database       string
	ConnectTimeout time.Duration
	Timeout        time.Duration
	MaxPoolSize    int
}

// NewGraphNeo4jStorage connects to Neo4j and verifies connectivity.
func NewGraphNeo4jStorage(ctx context.Context, params NewGraphNeo4jStorageParams) (*GraphNeo4jStorage, error) {
	auth := neo4jv5.BasicAuth(params.Username, params.Password, "")
	driver, err := neo4jv5.NewDriverWithContext(params.URI, auth, func(cfg *neo4jv5.Config) {
		// managed transactions run once, failures go straight to the caller
		cfg.MaxTransactionRetryTime = 0
		if params.MaxPoolSize > 0 {
			cfg.MaxConnectionPoolSize = params.MaxPoolSize
		}
		if params.ConnectTimeout > 0 {
			cfg.SocketConnectTimeout = params.ConnectTimeout
		}
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	verifyCtx := ctx
	if params.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		verifyCtx, cancel = context.WithTimeout(ctx, params.ConnectTimeout)
		defer cancel()
	}
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	return NewGraphNeo4jStorageWithDriver(driver, params.Database, params.Timeout), nil
}

// NewGraphNeo4jStorageWithDriver wraps an existing driver. The storage takes
// ownership of the driver and closes it in Close.
func NewGraphNeo4jStorageWithDriver(driver neo4jv5.DriverWithContext, database string, timeout time.Duration) *GraphNeo4jStorage {
	return &GraphNeo4jStorage{
		driver:   driver,
		database: database,
		timeout:  timeout,
	}
}

// Close releases the driver and all pooled connections.
func (s *GraphNeo4jStorage) Close(ctx context.Context) error {
	if s == nil || s.driver == nil {
		return nil
	}
	err := s.driver.Close(ctx)
	s.driver = nil
	return err
}

// txWork receives the operation context, which carries the per-op timeout.
type txWork func(ctx context.Context, tx neo4jv5.ManagedTransaction) (any, error)

func (s *GraphNeo4jStorage) execute(
	ctx context.Context,
	op string,
	mode neo4jv5.AccessMode,
	work txWork,
) (any, error) {
	if s.driver == nil {
		return nil, fmt.Errorf("neo4j %s: storage is closed", op)
	}

	ctx, span := tracer.Start(ctx, "neo4j."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "neo4j"),
			attribute.String("db.operation", op),
		),
	)
	defer span.End()

	session := s.driver.NewSession(ctx, neo4jv5.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
	defer session.Close(context.WithoutCancel(ctx))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	run := func(tx neo4jv5.ManagedTransaction) (any, error) {
		return work(ctx, tx)
	}

	var (
		out any
		err error
	)
	if mode == neo4jv5.AccessModeRead {
		out, err = session.ExecuteRead(ctx, run)
	} else {
		out, err = session.ExecuteWrite(ctx, run)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("neo4j %s: %w", op, err)
	}
	return out, nil
}

func (s *GraphNeo4jStorage) write(ctx context.Context, op string, work txWork) (any, error) {
	return s.execute(ctx, op, neo4jv5.AccessModeWrite, work)
}

func (s *GraphNeo4jStorage) read(ctx context.Context, op string, work txWork) (any, error) {
	return s.execute(ctx, op, neo4jv5.AccessModeRead, work)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asInt(v any) int {
	if n, ok := v.(int64); ok {
		return int(n)
	}
	return 0
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}
