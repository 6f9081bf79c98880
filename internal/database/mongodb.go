package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/singleflight"
)

// DefaultMongoURI is used when MONGODB_URI is not set.
const DefaultMongoURI = "mongodb://localhost:27017/vendor-management"

const defaultConnectTimeout = 10 * time.Second

// ErrConnectorClosed is returned by Client after Disconnect.
var ErrConnectorClosed = errors.New("database: mongo connector closed")

// DialFunc opens and verifies a client for uri.
type DialFunc func(ctx context.Context, uri string) (*mongo.Client, error)

// MongoConnector lazily opens one Mongo client for the life of the process.
//
// Concurrent callers of Client share a single in-flight dial. A successful
// client is cached; a failed dial caches nothing so the next call retries.
type MongoConnector struct {
	uri     string
	dbName  string
	dial    DialFunc
	timeout time.Duration

	group singleflight.Group

	mu     sync.RWMutex
	client *mongo.Client
	closed bool
}

// MongoOption configures a MongoConnector.
type MongoOption func(*MongoConnector)

// WithDialer replaces the function used to open the client.
func WithDialer(dial DialFunc) MongoOption {
	return func(c *MongoConnector) { c.dial = dial }
}

// WithConnectTimeout bounds a single dial attempt.
func WithConnectTimeout(d time.Duration) MongoOption {
	return func(c *MongoConnector) { c.timeout = d }
}

// NewMongoConnector returns a connector for uri. The database name is taken
// from the URI path, falling back to fallbackDB.
func NewMongoConnector(uri, fallbackDB string, opts ...MongoOption) *MongoConnector {
	if uri == "" {
		uri = DefaultMongoURI
	}
	c := &MongoConnector{
		uri:     uri,
		dbName:  DatabaseName(uri, fallbackDB),
		dial:    dialMongo,
		timeout: defaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DatabaseName extracts the database from a mongodb:// or mongodb+srv:// URI.
func DatabaseName(uri, fallback string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return fallback
	}
	if name := strings.TrimPrefix(u.Path, "/"); name != "" {
		return name
	}
	return fallback
}

// Name is the database this connector serves.
func (c *MongoConnector) Name() string { return c.dbName }

// Client returns the cached client, dialing on first use.
func (c *MongoConnector) Client(ctx context.Context) (*mongo.Client, error) {
	if cl, err := c.cached(); cl != nil || err != nil {
		return cl, err
	}

	ch := c.group.DoChan("connect", func() (any, error) {
		if cl, err := c.cached(); cl != nil || err != nil {
			return cl, err
		}
		// The dial outlives any single caller's cancellation: other callers
		// may be waiting on it.
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		cl, err := c.dial(dctx, c.uri)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			// Disconnect ran while this dial was in flight.
			_ = cl.Disconnect(context.Background())
			return nil, ErrConnectorClosed
		}
		c.client = cl
		c.mu.Unlock()
		return cl, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("database: connect: %w", res.Err)
		}
		return res.Val.(*mongo.Client), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Connect returns a handle to the configured database.
func (c *MongoConnector) Connect(ctx context.Context) (*mongo.Database, error) {
	cl, err := c.Client(ctx)
	if err != nil {
		return nil, err
	}
	return cl.Database(c.dbName), nil
}

// Collection returns a handle to the named collection.
func (c *MongoConnector) Collection(ctx context.Context, name string) (*mongo.Collection, error) {
	db, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

// Ping checks the server, dialing first if no client is cached yet.
func (c *MongoConnector) Ping(ctx context.Context) error {
	cl, err := c.Client(ctx)
	if err != nil {
		return err
	}
	return cl.Ping(ctx, readpref.Primary())
}

// Disconnect closes the cached client, if any. The connector cannot be used
// afterwards; a dial still in flight discards its client.
func (c *MongoConnector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	cl := c.client
	c.client = nil
	c.closed = true
	c.mu.Unlock()
	if cl == nil {
		return nil
	}
	return cl.Disconnect(ctx)
}

func (c *MongoConnector) cached() (*mongo.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrConnectorClosed
	}
	return c.client, nil
}

func dialMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}
