package webserver

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// WebserverConfig holds the trigger-interface HTTP settings.
type WebserverConfig struct {
	ListenTo           string
	CorsAllowedOrigins []string
}

// NewWebserverConfig loads the webserver configuration from environment
// variables. An empty CORS_ALLOWED_ORIGINS leaves cross-origin requests
// disabled, which is the right default for an internal batch endpoint.
func NewWebserverConfig() (*WebserverConfig, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		logrus.Infof("PORT not set. Defaulting to %s.", port)
	}

	var origins []string
	if raw := os.Getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}

	return &WebserverConfig{
		ListenTo:           ":" + port,
		CorsAllowedOrigins: origins,
	}, nil
}
