package serve

import (
	logger "github.com/sirupsen/logrus"

	"newsbacktest/src/server"
)

// Serve runs the results HTTP API until SIGINT or SIGTERM.
type Serve struct {
	Log *logger.Entry
}

func (s *Serve) Start() error {
	if s.Log == nil {
		s.Log = logger.WithField("cmd", "serve")
	}

	cfg := server.GetConfig()
	s.Log.WithField("port", cfg.Port).Info("Starting results server")
	server.StartServer(cfg.Port)
	return nil
}
