package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediaq/internal/daemon"
	"mediaq/internal/job"
	"mediaq/internal/logging"
	"mediaq/internal/services"
)

// ServiceName is the JSON-RPC service the daemon registers.
const ServiceName = "Mediaq"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: serverCtx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"),
				)
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"),
		)
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

// request returns a context tagged with a fresh request id and a logger
// carrying it.
func (s *service) request() (context.Context, *slog.Logger) {
	ctx := services.WithRequestID(s.ctx, uuid.NewString())
	return ctx, logging.WithContext(ctx, s.logger)
}

func (s *service) Add(req AddRequest, resp *AddResponse) error {
	ctx, logger := s.request()
	logger.Debug("add requested", logging.Int("path_count", len(req.Paths)), logging.Int(logging.FieldJobIndex, req.Index))
	records, err := s.daemon.Add(ctx, req.Paths, req.Index)
	if err != nil {
		return err
	}
	base := req.Index
	if base < 0 {
		base = len(s.daemon.List()) - len(records)
	}
	resp.Jobs = make([]JobInfo, 0, len(records))
	for i, r := range records {
		resp.Jobs = append(resp.Jobs, FromRecord(r, base+i))
	}
	logger.Info("jobs added via IPC",
		logging.Int("job_count", len(records)),
		logging.String(logging.FieldEventType, "ipc_add"),
	)
	return nil
}

func (s *service) List(req ListRequest, resp *ListResponse) error {
	filter := make(map[job.Status]struct{}, len(req.Statuses))
	for _, value := range req.Statuses {
		status, ok := job.ParseStatus(value)
		if !ok {
			return fmt.Errorf("unknown status %q", value)
		}
		filter[status] = struct{}{}
	}
	records := s.daemon.List()
	resp.Jobs = make([]JobInfo, 0, len(records))
	for i, r := range records {
		if len(filter) > 0 {
			if _, ok := filter[r.Status]; !ok {
				continue
			}
		}
		resp.Jobs = append(resp.Jobs, FromRecord(r, i))
	}
	return nil
}

func (s *service) Remove(req RemoveRequest, resp *RemoveResponse) error {
	if len(req.IDs) == 0 {
		return errors.New("remove requires at least one id")
	}
	ctx, logger := s.request()
	removed, err := s.daemon.Remove(ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.Removed = removed
	logger.Info("jobs removed via IPC",
		logging.Int("removed_count", removed),
		logging.String(logging.FieldEventType, "ipc_remove"),
	)
	return nil
}

func (s *service) Move(req MoveRequest, _ *MoveResponse) error {
	ctx, logger := s.request()
	if err := s.daemon.Move(ctx, req.From, req.To); err != nil {
		return err
	}
	logger.Info("job moved via IPC",
		logging.Int("from", req.From),
		logging.Int("to", req.To),
		logging.String(logging.FieldEventType, "ipc_move"),
	)
	return nil
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	started, err := s.daemon.StartQueue()
	if err != nil {
		resp.Message = err.Error()
		return nil
	}
	resp.Started = started
	if started {
		resp.Message = "queue started"
	} else {
		resp.Message = "queue already running"
	}
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.daemon.StopQueue()
	resp.Stopped = true
	s.logger.Info("queue stop requested via IPC", logging.String(logging.FieldEventType, "ipc_stop"))
	return nil
}

func (s *service) StartAndWait(_ StartAndWaitRequest, resp *StartAndWaitResponse) error {
	ctx, _ := s.request()
	summary, err := s.daemon.StartAndWait(ctx)
	if err != nil {
		return err
	}
	resp.State = string(summary.State)
	resp.Succeeded = summary.Succeeded
	resp.Failed = summary.Failed
	resp.LastError = summary.LastError
	return nil
}

func (s *service) ClearCompleted(_ ClearCompletedRequest, resp *ClearCompletedResponse) error {
	ctx, _ := s.request()
	resp.Removed = s.daemon.ClearCompleted(ctx)
	return nil
}

func (s *service) Retry(req RetryRequest, resp *RetryResponse) error {
	ctx, _ := s.request()
	for _, id := range req.IDs {
		if err := s.daemon.Retry(ctx, id); err != nil {
			return err
		}
		resp.Retried++
	}
	return nil
}

func (s *service) SetDestination(req SetDestinationRequest, resp *SetDestinationResponse) error {
	ctx, _ := s.request()
	dest, err := s.daemon.SetDestination(ctx, req.ID, req.Destination)
	if err != nil {
		return err
	}
	resp.Destination = dest
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	q := status.Queue
	resp.Running = status.Running
	resp.State = string(q.State)
	resp.Total = q.Total
	resp.Succeeded = q.Succeeded
	resp.Failed = q.Failed
	resp.LastError = q.LastError
	resp.LockPath = status.LockFilePath
	resp.QueueDBPath = status.QueueDBPath
	resp.Database = DatabaseInfoFrom(status.Database, status.DatabaseError)
	resp.PID = os.Getpid()
	resp.Counts = make(map[string]int, len(q.Counts))
	for k, v := range q.Counts {
		resp.Counts[string(k)] = v
	}
	if q.Current != nil {
		info := FromRecord(*q.Current, q.CurrentIndex)
		resp.Current = &info
	}
	for _, check := range status.Checks {
		resp.Checks = append(resp.Checks, CheckResult{Name: check.Name, Passed: check.Passed, Detail: check.Detail})
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}

func (s *service) Events(req EventsRequest, resp *EventsResponse) error {
	ctx := s.ctx
	wait := req.WaitSeconds > 0
	if wait {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, time.Duration(req.WaitSeconds)*time.Second)
		defer cancel()
	}
	evts, next, err := s.daemon.Events(ctx, req.Since, req.Limit, wait)
	if errors.Is(err, context.DeadlineExceeded) {
		resp.Next = req.Since
		return nil
	}
	if err != nil {
		return err
	}
	resp.Events = evts
	resp.Next = next
	return nil
}
