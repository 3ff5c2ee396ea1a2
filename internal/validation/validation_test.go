package validation

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupBody struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name string
		body signupBody
		want map[string]string
	}{
		{
			name: "valid",
			body: signupBody{Name: "A", Email: "a@x.com", Password: "Password123"},
			want: nil,
		},
		{
			name: "all missing",
			body: signupBody{},
			want: map[string]string{
				"name":     "name is required",
				"email":    "email is required",
				"password": "password is required",
			},
		},
		{
			name: "bad email and short password",
			body: signupBody{Name: "A", Email: "not-an-email", Password: "short"},
			want: map[string]string{
				"email":    "email must be a valid email address",
				"password": "password must be at least 8 characters",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Struct(tt.body))
		})
	}
}

func TestParseBody(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		var body signupBody
		if ok, err := ParseBody(c, &body); !ok {
			return err
		}
		return c.SendString(body.Name)
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid", `{"name":"A","email":"a@x.com","password":"Password123"}`, 200},
		{"malformed json", `{"name":`, 400},
		{"fails validation", `{"name":"A","email":"nope","password":"x"}`, 422},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
