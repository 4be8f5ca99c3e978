package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Greeting is the response body for every request, byte-for-byte.
const Greeting = "Hello from secure CI/CD with SLSA + Cosign (Python Edition)!\n"

type Handlers struct{}

func NewHandlers() *Handlers {
	return &Handlers{}
}

// Greet answers any method on any path with the fixed plaintext greeting.
// Request content is ignored; there is no error branch.
func (h *Handlers) Greet(c echo.Context) error {
	return c.Blob(http.StatusOK, echo.MIMETextPlain, []byte(Greeting))
}
