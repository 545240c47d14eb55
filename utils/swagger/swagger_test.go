package swagger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// SwaggerTestSuite defines a test suite for swagger functions
type SwaggerTestSuite struct {
	suite.Suite
	router *gin.Engine
}

// SetupTest runs before each test
func (suite *SwaggerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
}

// TestServeCleanSwagger tests rendering with an explicit config
func (suite *SwaggerTestSuite) TestServeCleanSwagger() {
	config := SwaggerConfig{
		Title:         "RoadRescue API",
		SwaggerDocURL: "/swagger/doc.json",
		AuthURL:       "/api/v1/user/login",
	}

	suite.router.GET("/swagger", ServeCleanSwagger(config))

	req, err := http.NewRequest("GET", "/swagger", nil)
	require.NoError(suite.T(), err)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "text/html; charset=utf-8", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(suite.T(), body, "RoadRescue API")
	assert.Contains(suite.T(), body, "/swagger/doc.json")
	assert.Contains(suite.T(), body, "/api/v1/user/login")
	assert.Contains(suite.T(), body, "swagger-ui-bundle.js")
	assert.Contains(suite.T(), body, "attachLoginFunctionality")
}

// TestServeCleanSwaggerDefaults tests that empty config fields fall back
func (suite *SwaggerTestSuite) TestServeCleanSwaggerDefaults() {
	suite.router.GET("/swagger", ServeCleanSwagger(SwaggerConfig{}))

	req, err := http.NewRequest("GET", "/swagger", nil)
	require.NoError(suite.T(), err)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(suite.T(), body, "API Documentation")
	assert.Contains(suite.T(), body, "/swagger/doc.json")
	assert.Contains(suite.T(), body, "/api/v1/user/login")
}

func TestSwaggerTestSuite(t *testing.T) {
	suite.Run(t, new(SwaggerTestSuite))
}
