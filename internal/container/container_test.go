package container

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-proctor-inspector/internal/config"
)

func TestNewContainer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("TEMP_DIR", t.TempDir())
	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()

	c, err := NewContainer(cfg, logger)
	require.NoError(t, err)
	assert.Same(t, cfg, c.Config())
	assert.Same(t, logger, c.Logger())

	for _, path := range []string{"/", "/health", "/metrics"} {
		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestNewContainer_BadDecoder(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := &config.Config{Decoder: "vlc", TempDir: t.TempDir()}

	_, err := NewContainer(cfg, logger)
	assert.Error(t, err)
}
