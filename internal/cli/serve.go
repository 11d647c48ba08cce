package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vburojevic/hookd/internal/bridge"
	"github.com/vburojevic/hookd/internal/pipeline"
	"github.com/vburojevic/hookd/internal/rules"
)

// ServeCmd runs the pipeline server: bridge listener, dispatch chain,
// queues, correlator and feed mapper. Feed events stream to stdout as
// NDJSON for the rendering collaborator.
type ServeCmd struct {
	Socket     string `short:"s" help:"Socket path (default: derived from project dir)"`
	ProjectDir string `short:"C" help:"Project directory the socket path is derived from (default: cwd)"`
	RulesFile  string `help:"YAML rules file (default: ~/.hookd/rules.yaml)"`
	NoFeed     bool   `help:"Do not stream feed events to stdout"`
}

// Run executes the serve command.
func (c *ServeCmd) Run(globals *Globals) error {
	logger := newLogger(globals)
	defer logger.Sync()

	socket, err := c.resolveSocket(globals)
	if err != nil {
		return outputError(globals, "SOCKET_PATH", err.Error())
	}

	rulesFile := c.RulesFile
	if rulesFile == "" {
		rulesFile = globals.Config.DefaultRulesFile()
	}
	store := rules.NewStore(logger)
	if err := store.LoadFile(rulesFile); err != nil {
		return outputError(globals, "RULES_LOAD", err.Error())
	}
	if err := store.Watch(); err != nil {
		logger.Warn("rules watch unavailable", zap.Error(err))
	}
	defer store.Close()

	p := pipeline.New(pipeline.Options{Rules: store, Logger: logger})
	defer p.Close()

	srv := bridge.NewServer(socket, p, logger)
	if err := srv.Start(); err != nil {
		return outputError(globals, "LISTEN", err.Error())
	}
	defer srv.Close()

	fmt.Fprintf(globals.Stdout, `{"type":"ready","socket":%q,"rules_file":%q}`+"\n", socket, rulesFile)

	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if !c.NoFeed {
		go c.streamFeed(globals, p, done)
	}

	<-sigCh
	close(done)
	logger.Info("shutting down")
	return nil
}

// streamFeed tails the pipeline's append-only feed onto stdout.
func (c *ServeCmd) streamFeed(globals *Globals, p *pipeline.Pipeline, done <-chan struct{}) {
	enc := json.NewEncoder(globals.Stdout)
	cursor := 0
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			events := p.EventsSince(cursor)
			for i := range events {
				if err := enc.Encode(&events[i]); err != nil {
					return
				}
			}
			cursor += len(events)
		}
	}
}

func (c *ServeCmd) resolveSocket(globals *Globals) (string, error) {
	if c.Socket != "" {
		return c.Socket, nil
	}
	if globals.Config.Bridge.Socket != "" {
		return globals.Config.Bridge.Socket, nil
	}
	dir := c.ProjectDir
	if dir == "" {
		dir = globals.Config.Bridge.ProjectDir
	}
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}
	return bridge.SocketPath(dir), nil
}
