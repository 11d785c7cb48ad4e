package webserver

import (
	"encoding/json"
	"net/http"
)

// HTTPResp is the uniform JSON envelope for every API response.
type HTTPResp struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// writeJSONResponse writes a JSON response with the specified HTTP status and data.
func writeJSONResponse(w http.ResponseWriter, httpStatus int, data *HTTPResp) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeSuccessResponse sends a successful JSON response.
func writeSuccessResponse(w http.ResponseWriter, message string, data interface{}) {
	writeJSONResponse(w,
		http.StatusOK,
		&HTTPResp{Status: "success", Data: data, Message: message})
}

// writeErrorResponse sends an error JSON response.
func writeErrorResponse(w http.ResponseWriter, message string, httpStatus int) {
	writeJSONResponse(w,
		httpStatus,
		&HTTPResp{Status: "error", Data: nil, Message: message})
}
