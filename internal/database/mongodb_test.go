package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestDatabaseName(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{uri: "mongodb://localhost:27017/vendor-management", want: "vendor-management"},
		{uri: "mongodb://user:pw@db1,db2/vendors?replicaSet=rs0", want: "vendors"},
		{uri: "mongodb+srv://cluster.example.net/prod?retryWrites=true", want: "prod"},
		{uri: "mongodb://localhost:27017", want: "fallback"},
		{uri: "mongodb://localhost:27017/", want: "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.want, DatabaseName(tt.uri, "fallback"))
		})
	}
}

func TestNewMongoConnector_DefaultURI(t *testing.T) {
	c := NewMongoConnector("", "x")
	assert.Equal(t, "vendor-management", c.Name())
}

func TestMongoConnector_ConcurrentCallersShareOneDial(t *testing.T) {
	var dials atomic.Int32
	release := make(chan struct{})
	want := new(mongo.Client)

	c := NewMongoConnector("mongodb://localhost/test", "", WithDialer(func(ctx context.Context, uri string) (*mongo.Client, error) {
		dials.Add(1)
		<-release
		return want, nil
	}))

	const callers = 8
	var wg sync.WaitGroup
	got := make([]*mongo.Client, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], errs[i] = c.Client(context.Background())
		}(i)
	}

	// let every caller reach the in-flight dial
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), dials.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, want, got[i])
	}
}

func TestMongoConnector_CachesAfterSuccess(t *testing.T) {
	var dials atomic.Int32
	want := new(mongo.Client)
	c := NewMongoConnector("mongodb://localhost/test", "", WithDialer(func(ctx context.Context, uri string) (*mongo.Client, error) {
		dials.Add(1)
		return want, nil
	}))

	for i := 0; i < 3; i++ {
		cl, err := c.Client(context.Background())
		require.NoError(t, err)
		assert.Same(t, want, cl)
	}
	assert.Equal(t, int32(1), dials.Load())
}

func TestMongoConnector_FailureClearsState(t *testing.T) {
	var dials atomic.Int32
	want := new(mongo.Client)
	c := NewMongoConnector("mongodb://localhost/test", "", WithDialer(func(ctx context.Context, uri string) (*mongo.Client, error) {
		if dials.Add(1) == 1 {
			return nil, errors.New("connection refused")
		}
		return want, nil
	}))

	_, err := c.Client(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	cl, err := c.Client(context.Background())
	require.NoError(t, err)
	assert.Same(t, want, cl)
	assert.Equal(t, int32(2), dials.Load())
}

func TestMongoConnector_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	want := new(mongo.Client)
	c := NewMongoConnector("mongodb://localhost/test", "", WithDialer(func(ctx context.Context, uri string) (*mongo.Client, error) {
		<-release
		return want, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Client(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// the shared dial keeps going and serves the next caller
	close(release)
	cl, err := c.Client(context.Background())
	require.NoError(t, err)
	assert.Same(t, want, cl)
}

func TestMongoConnector_DisconnectWithoutClient(t *testing.T) {
	c := NewMongoConnector("mongodb://localhost/test", "")
	assert.NoError(t, c.Disconnect(context.Background()))
}

func TestMongoConnector_DisconnectDuringDial(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	c := NewMongoConnector("mongodb://localhost/test", "", WithDialer(func(ctx context.Context, uri string) (*mongo.Client, error) {
		close(started)
		<-release
		return new(mongo.Client), nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	go func() { _, _ = c.Client(ctx) }()
	<-started

	// shutdown while the shared dial is still running
	require.NoError(t, c.Disconnect(context.Background()))
	close(release)

	_, err := c.Client(context.Background())
	assert.ErrorIs(t, err, ErrConnectorClosed)
	assert.Eventually(t, func() bool {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.client == nil
	}, time.Second, 5*time.Millisecond)
}
