package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	pb "github.com/SPohlabeln/S2-TCVIS/worker/mosaicservice"

	reuseport "github.com/kavu/go_reuseport"
	"golang.org/x/net/context"
	"google.golang.org/grpc"
)

type server struct {
	Pool *pb.ProcessPool
}

func (s *server) Process(ctx context.Context, in *pb.MosaicGranule) (*pb.Result, error) {
	rChan := make(chan *pb.Result)
	defer close(rChan)
	errChan := make(chan error)
	defer close(errChan)

	s.Pool.AddQueue(&pb.Task{Payload: in, Resp: rChan, Error: errChan})

	select {
	case out, ok := <-rChan:
		if !ok {
			return &pb.Result{}, fmt.Errorf("task response channel has been closed")
		}
		if out.Error != "OK" {
			return &pb.Result{}, fmt.Errorf("%s", out.Error)
		}
		return out, nil
	case err := <-errChan:
		return &pb.Result{}, fmt.Errorf("Error in ops: %v", err)
	case <-ctx.Done():
		return &pb.Result{}, ctx.Err()
	}
}

func main() {
	port := flag.Int("p", 6000, "gRPC server listening port.")
	poolSize := flag.Int("n", 8, "Maximum number of requests handled concurrently.")
	executable := flag.String("exec", "", "Executable filepath")
	memLimit := flag.Int("mem_limit", 0, "Resident memory limit per worker in MB, 0 disables the watchdog.")
	confFile := flag.String("conf", "", "config.json path handed to the workers for object-store session settings.")
	maxRecvMsgSize := flag.Int("max_recv_msg_size", 200*1024*1024, "Maximum message size the server accepts.")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	p, err := pb.CreateProcessPool(*poolSize, *executable, *memLimit, *confFile, *debug)
	if err != nil {
		log.Printf("Failed to create process pool: %v", err)
		os.Exit(2)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		for {
			select {
			case <-signals:
				for _, proc := range p.Pool {
					if proc != nil {
						proc.RemoveTempFiles()
					}
				}

				os.Exit(1)
			}
		}
	}()

	s := grpc.NewServer(grpc.MaxRecvMsgSize(*maxRecvMsgSize))
	pb.RegisterMosaicServer(s, &server{Pool: p})

	// SO_REUSEPORT lets several mosaic-server instances share one port
	// on a node; the kernel spreads incoming connections across them.
	lis, err := reuseport.Listen("tcp", fmt.Sprintf(":%d", *port))
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	if err := s.Serve(lis); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
