package processor

import (
	"fmt"
	"log"
	"math/rand"

	pb "github.com/SPohlabeln/S2-TCVIS/worker/mosaicservice"
	"golang.org/x/net/context"
	"google.golang.org/grpc"
)

// GranuleRunner is the worker-cluster surface the pipeline consumes.
type GranuleRunner interface {
	Process(ctx context.Context, granule *pb.MosaicGranule, idx int) (*pb.Result, error)
	ConcLevel() int
}

// ClusterClient is a pool of connections to the mosaic worker nodes.
// One pool serves all years of a run; callers spread tasks by index.
type ClusterClient struct {
	Conns         []*grpc.ClientConn
	GrpcConcLimit int
}

func DialCluster(workerNodes []string, maxGrpcRecvMsgSize int, grpcConcLimit int) (*ClusterClient, error) {
	if len(workerNodes) == 0 {
		return nil, fmt.Errorf("no worker nodes configured")
	}

	opts := []grpc.DialOption{
		grpc.WithInsecure(),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxGrpcRecvMsgSize)),
	}

	nodeIdx := make([]int, len(workerNodes))
	for i := range nodeIdx {
		nodeIdx[i] = i
	}
	rand.Shuffle(len(nodeIdx), func(i, j int) { nodeIdx[i], nodeIdx[j] = nodeIdx[j], nodeIdx[i] })

	var conns []*grpc.ClientConn
	for _, i := range nodeIdx {
		conn, err := grpc.Dial(workerNodes[i], opts...)
		if err != nil {
			log.Printf("gRPC connection problem: %v", err)
			continue
		}
		conns = append(conns, conn)
	}

	if len(conns) == 0 {
		return nil, fmt.Errorf("All gRPC servers offline")
	}

	if grpcConcLimit <= 0 {
		grpcConcLimit = 2
	}
	return &ClusterClient{Conns: conns, GrpcConcLimit: grpcConcLimit}, nil
}

// Process ships one granule to a worker node. idx selects the
// connection; callers pass a task counter to spread load.
func (c *ClusterClient) Process(ctx context.Context, granule *pb.MosaicGranule, idx int) (*pb.Result, error) {
	conn := c.Conns[idx%len(c.Conns)]
	client := pb.NewMosaicClient(conn)
	r, err := client.Process(ctx, granule)
	if err != nil {
		return nil, err
	}
	if r.Error != "OK" {
		return nil, fmt.Errorf("%s", r.Error)
	}
	return r, nil
}

// ConcLevel is the cluster-wide task concurrency.
func (c *ClusterClient) ConcLevel() int {
	return c.GrpcConcLimit * len(c.Conns)
}

func (c *ClusterClient) Close() {
	for _, conn := range c.Conns {
		conn.Close()
	}
}
