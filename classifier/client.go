package classifier

import (
	"fmt"
	"unsafe"

	"golang.org/x/net/context"
	"google.golang.org/grpc"
)

// Classifier labels every pixel of a scene with a surface class.
// Class 0 is clear surface; anything else is occluded (cloud, shadow,
// snow) and gets masked out downstream.
type Classifier interface {
	Classify(ctx context.Context, planes [][]float32, height, width int) (*ClassMap, error)
	Close() error
}

type grpcClassifier struct {
	conn   *grpc.ClientConn
	client CloudClassClient
}

// NewClassifier dials the cloud classification service. The service
// holds the model; we only ship pixels back and forth.
func NewClassifier(address string, maxRecvMsgSize int) (Classifier, error) {
	opts := []grpc.DialOption{
		grpc.WithInsecure(),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxRecvMsgSize)),
	}
	conn, err := grpc.Dial(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("classifier connection problem: %v", err)
	}
	return &grpcClassifier{conn: conn, client: NewCloudClassClient(conn)}, nil
}

func (c *grpcClassifier) Classify(ctx context.Context, planes [][]float32, height, width int) (*ClassMap, error) {
	nPixels := height * width
	for i, plane := range planes {
		if len(plane) != nPixels {
			return nil, fmt.Errorf("classifier input plane %d has %d pixels, grid has %d", i, len(plane), nPixels)
		}
	}

	data := make([]float32, 0, len(planes)*nPixels)
	for _, plane := range planes {
		data = append(data, plane...)
	}

	header := *(*sliceHeader)(unsafe.Pointer(&data))
	header.Len *= SizeOfFloat32
	header.Cap *= SizeOfFloat32
	dBytes := *(*[]uint8)(unsafe.Pointer(&header))

	req := &ClassifyRequest{
		Data:     dBytes,
		Height:   int32(height),
		Width:    int32(width),
		Channels: int32(len(planes)),
	}

	res, err := c.client.Classify(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.Error != "" {
		return nil, fmt.Errorf("classifier: %s", res.Error)
	}
	return res, nil
}

func (c *grpcClassifier) Close() error {
	return c.conn.Close()
}

const SizeOfFloat32 = 4

type sliceHeader struct {
	Data unsafe.Pointer
	Len  int
	Cap  int
}
