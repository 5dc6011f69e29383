package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Req, Resp any](c *Client, method string, req Req) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Add queues paths at index; -1 appends.
func (c *Client) Add(paths []string, index int) (*AddResponse, error) {
	return call[AddRequest, AddResponse](c, "Add", AddRequest{Paths: paths, Index: index})
}

// List returns queue entries, optionally filtered by status.
func (c *Client) List(statuses []string) (*ListResponse, error) {
	return call[ListRequest, ListResponse](c, "List", ListRequest{Statuses: statuses})
}

// Remove deletes jobs by id.
func (c *Client) Remove(ids []string) (*RemoveResponse, error) {
	return call[RemoveRequest, RemoveResponse](c, "Remove", RemoveRequest{IDs: ids})
}

// Move relocates the job at from to index to.
func (c *Client) Move(from, to int) error {
	_, err := call[MoveRequest, MoveResponse](c, "Move", MoveRequest{From: from, To: to})
	return err
}

// Start requests the daemon to start the queue.
func (c *Client) Start() (*StartResponse, error) {
	return call[StartRequest, StartResponse](c, "Start", StartRequest{})
}

// Stop requests the daemon to stop the queue.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopRequest, StopResponse](c, "Stop", StopRequest{})
}

// StartAndWait starts the queue and blocks until the run ends.
func (c *Client) StartAndWait() (*StartAndWaitResponse, error) {
	return call[StartAndWaitRequest, StartAndWaitResponse](c, "StartAndWait", StartAndWaitRequest{})
}

// ClearCompleted removes completed jobs.
func (c *Client) ClearCompleted() (*ClearCompletedResponse, error) {
	return call[ClearCompletedRequest, ClearCompletedResponse](c, "ClearCompleted", ClearCompletedRequest{})
}

// Retry returns failed or cancelled jobs to ready.
func (c *Client) Retry(ids []string) (*RetryResponse, error) {
	return call[RetryRequest, RetryResponse](c, "Retry", RetryRequest{IDs: ids})
}

// SetDestination changes the output path of a ready job.
func (c *Client) SetDestination(id, dest string) (*SetDestinationResponse, error) {
	return call[SetDestinationRequest, SetDestinationResponse](c, "SetDestination", SetDestinationRequest{ID: id, Destination: dest})
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusRequest, StatusResponse](c, "Status", StatusRequest{})
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationRequest, TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}

// Events polls queue events after since.
func (c *Client) Events(since uint64, limit, waitSeconds int) (*EventsResponse, error) {
	return call[EventsRequest, EventsResponse](c, "Events", EventsRequest{Since: since, Limit: limit, WaitSeconds: waitSeconds})
}
