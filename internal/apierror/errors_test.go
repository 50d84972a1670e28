package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", NotFound("User not found"), http.StatusNotFound},
		{"unauthorized", Unauthorized("expired"), http.StatusUnauthorized},
		{"forbidden", Forbidden("inactive"), http.StatusForbidden},
		{"bad request", BadRequest("missing"), http.StatusBadRequest},
		{"internal", Internal("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("factory: %w", Unauthorized("expired")), http.StatusUnauthorized},
		{"untyped", errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Errorf("StatusOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestError_Message(t *testing.T) {
	err := BadRequest("Unsupported auth provider: aol")
	if err.Error() != "Unsupported auth provider: aol" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !IsBadRequest(err) || IsNotFound(err) || IsUnauthorized(err) {
		t.Error("predicates disagree with status")
	}
}
