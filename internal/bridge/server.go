package bridge

import (
	"bufio"
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/vburojevic/hookd/internal/domain"
)

// maxEnvelope bounds one request line; tool inputs can carry file contents.
const maxEnvelope = 8 << 20

// Handler answers one validated envelope. Implementations own the decision
// chain; the server only frames, validates and logs.
type Handler interface {
	Handle(ctx context.Context, env domain.RequestEnvelope) domain.ReplyPayload
}

// Server accepts forwarder connections on a local stream socket: one
// newline-framed envelope in, exactly one reply line out. Malformed
// envelopes are rejected at this boundary (connection closed, no reply)
// so they never reach the pipeline.
type Server struct {
	path    string
	handler Handler
	logger  *zap.Logger

	ln     net.Listener
	wg     sync.WaitGroup
	closed chan struct{}
}

// NewServer creates a server for the given socket path. Logger may be nil.
func NewServer(path string, h Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{path: path, handler: h, logger: logger, closed: make(chan struct{})}
}

// Addr returns the socket path the server listens on.
func (s *Server) Addr() string { return s.path }

// Start begins accepting connections. A stale socket file from a previous
// run is removed first.
func (s *Server) Start() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return err
	}
	s.ln = ln
	s.wg.Add(1)
	go s.acceptLoop()
	s.logger.Info("bridge listening", zap.String("socket", s.path))
	return nil
}

// Close stops accepting, waits for in-flight connections and removes the
// socket file.
func (s *Server) Close() error {
	close(s.closed)
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	s.wg.Wait()
	os.Remove(s.path)
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", zap.Error(err))
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(conn)
		}()
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	r := bufio.NewReaderSize(conn, 64*1024)
	line, err := readLine(r)
	if err != nil {
		s.logger.Debug("short read from forwarder", zap.Error(err))
		return
	}

	var env domain.RequestEnvelope
	if err := sonic.Unmarshal(line, &env); err != nil {
		s.logger.Warn("malformed envelope", zap.Error(err))
		return
	}
	if err := env.Validate(); err != nil {
		s.logger.Warn("rejected envelope",
			zap.String("request_id", env.RequestID), zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reply := s.handler.Handle(ctx, env)

	out := domain.ReplyEnvelope{
		V:         domain.ProtocolVersion,
		Kind:      domain.KindHookResult,
		RequestID: env.RequestID,
		TS:        time.Now().UnixMilli(),
		Payload:   reply,
	}
	buf, err := sonic.Marshal(out)
	if err != nil {
		s.logger.Error("encode reply failed", zap.Error(err))
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := conn.Write(append(buf, '\n')); err != nil {
		s.logger.Debug("reply write failed",
			zap.String("request_id", env.RequestID), zap.Error(err))
	}
}

func readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		line = append(line, chunk...)
		if err == nil {
			return line, nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			if len(line) > maxEnvelope {
				return nil, errors.New("envelope too large")
			}
			continue
		}
		return nil, err
	}
}
