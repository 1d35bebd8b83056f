package kafka

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/proto"
)

// ProtoHandler decodes each message value into a fresh M before calling
// handle. Undecodable values are returned as errors and never reach handle.
func ProtoHandler[M proto.Message](ctor func() M, handle func(context.Context, []byte, M) error) Handler {
	return func(ctx context.Context, key, value []byte) error {
		msg := ctor()
		if err := proto.Unmarshal(value, msg); err != nil {
			return fmt.Errorf("decode %T: %w", msg, err)
		}
		return handle(ctx, key, msg)
	}
}
