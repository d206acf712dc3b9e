package handlers

import (
	"net/http"

	"github.com/markdave123-py/ivyready/internal/api/response"
)

func Healthz(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
