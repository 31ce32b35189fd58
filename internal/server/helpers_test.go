package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"forum/internal/config"
	"forum/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupMockDB creates a GORM *gorm.DB backed by sqlmock for unit tests.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	return gormDB, mock
}

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"commentId", "comment ID"},
		{"parentCommentId", "parent comment ID"},
		{"name", "name"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		param   string
		value   string
		status  int
		message string
	}{
		{"valid", "id", "42", http.StatusOK, ""},
		{"non numeric", "id", "abc", http.StatusBadRequest, "Invalid ID"},
		{"zero", "id", "0", http.StatusBadRequest, "Invalid ID"},
		{"negative", "id", "-3", http.StatusBadRequest, "Invalid ID"},
		{"comment param", "commentId", "x", http.StatusBadRequest, "Invalid comment ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/items/:"+tt.param, func(c *fiber.Ctx) error {
				id, err := parseID(c, tt.param)
				if err != nil {
					return nil
				}
				return c.JSON(fiber.Map{"id": id})
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items/"+tt.value, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.message != "" {
				var body models.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.message, body.Error)
				assert.Equal(t, models.CodeValidation, body.Code)
			}
		})
	}
}

func TestPaging(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		page, size, err := paging(c)
		if err != nil {
			return respond(c, err)
		}
		return c.JSON(fiber.Map{"page": page, "size": size})
	})

	t.Run("absent parameters stay unset", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		var body map[string]*int
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Nil(t, body["page"])
		assert.Nil(t, body["size"])
	})

	t.Run("explicit values", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items?page=2&size=25", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		var body map[string]*int
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.NotNil(t, body["page"])
		assert.Equal(t, 2, *body["page"])
		assert.Equal(t, 25, *body["size"])
	})

	t.Run("non numeric size", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items?size=lots", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body models.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Fields, 1)
		assert.Equal(t, "size", body.Fields[0].Field)
	})
}

func TestRespond_HidesInternalCause(t *testing.T) {
	app := fiber.New()
	app.Get("/boom", func(c *fiber.Ctx) error {
		return respond(c, models.NewInternalError(errors.New("pq: connection refused")))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.CodeInternal, body.Code)
	assert.Empty(t, body.Details)
}

func TestReadinessCheck_DatabaseDown(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	s := &Server{config: &config.Config{}, db: gormDB}
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	app := fiber.New()
	app.Get("/health/ready", s.ReadinessCheck)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "unhealthy", body.Checks["database"])
	assert.Equal(t, "disabled", body.Checks["redis"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
