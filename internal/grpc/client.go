package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	pb "github.com/Belphemur/TubeMP3/api/v1"
)

// Client is a DownloaderService client bound to its connection
type Client struct {
	pb.DownloaderServiceClient
	conn *grpc.ClientConn
}

// Dial connects to a running `tubemp3 serve` at address (host:port).
// The connection is plaintext: the service is meant for localhost use.
func Dial(address string) (*Client, error) {
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &Client{DownloaderServiceClient: pb.NewDownloaderServiceClient(conn), conn: conn}, nil
}

// Close closes the underlying connection
func (c *Client) Close() error {
	return c.conn.Close()
}
