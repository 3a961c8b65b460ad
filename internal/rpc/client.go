// Package rpc holds the gRPC plumbing for the class-notes document service:
// the wire messages, a thin client, and the dial helper.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"notesync/pkg/model"
)

type BatchGetRequest struct {
	Ids []string `json:"ids"`
}

type BatchGetResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Documents []*model.Document `json:"documents"`
}

type DocumentServiceClient interface {
	BatchGetDocuments(ctx context.Context, in *BatchGetRequest, opts ...grpc.CallOption) (*BatchGetResponse, error)
}

type documentServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewDocumentServiceClient(cc grpc.ClientConnInterface) DocumentServiceClient {
	return &documentServiceClient{cc: cc}
}

func (c *documentServiceClient) BatchGetDocuments(ctx context.Context, in *BatchGetRequest, opts ...grpc.CallOption) (*BatchGetResponse, error) {
	out := new(BatchGetResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	err := c.cc.Invoke(ctx, "/notesync.DocumentService/BatchGetDocuments", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Dial connects to the document service.
func Dial(addr string) (*grpc.ClientConn, error) {
	var opts []grpc.DialOption
	opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))

	return grpc.NewClient(addr, opts...)
}
