package main

import (
	"Ashray/server"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestRun_FullCoverage(t *testing.T) {
	isTest = true
	defer func() { isTest = false }()
	t.Setenv("MONGO_URI", "mongodb://127.0.0.1:1")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("AWS_S3_BUCKET", "")
	t.Setenv("UPLOAD_DIR", t.TempDir())

	origConnect, origStart := connectMongo, startServer
	defer func() { connectMongo, startServer = origConnect, origStart }()

	// connect lazily so no server is needed
	connectMongo = func(ctx context.Context, uri string) (*mongo.Client, error) {
		return mongo.Connect(ctx, options.Client().ApplyURI(uri))
	}

	var capturedOpts server.Options
	startServer = func(opts server.Options) error {
		capturedOpts = opts
		return nil
	}

	require.NoError(t, run())

	assert.False(t, capturedOpts.MigrationEnabled)
	assert.False(t, capturedOpts.JobsEnabled)
	require.NoError(t, capturedOpts.MigrationHandler(context.Background()))
	capturedOpts.JobsHandler()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	capturedOpts.WebServerPreHandler(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/prescriptions", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	capturedOpts.ShutdownHandler(context.Background())
}
